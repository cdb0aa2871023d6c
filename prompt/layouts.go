package prompt

import "preset-panels/xapi"

// Layout is one selectable monitor arrangement. Roles are assigned to output
// connectors 1..3 in order.
type Layout struct {
	Option      int
	Label       string
	Description string
	Monitors    xapi.MonitorMode
	Roles       [3]xapi.MonitorRole
}

// Layouts is the fixed option table shown in the monitor select prompt.
var Layouts = []Layout{
	{
		Option:      1,
		Label:       "Content Only",
		Description: "All screens show content",
		Monitors:    xapi.MonitorsSingle,
		Roles:       [3]xapi.MonitorRole{xapi.RolePresentationOnly, xapi.RolePresentationOnly, xapi.RolePresentationOnly},
	},
	{
		Option:      2,
		Label:       "Video Only",
		Description: "All screens show video",
		Monitors:    xapi.MonitorsTriple,
		Roles:       [3]xapi.MonitorRole{xapi.RoleFirst, xapi.RoleFirst, xapi.RoleSecond},
	},
	{
		Option:      3,
		Label:       "Normal View 1",
		Description: "Content left",
		Monitors:    xapi.MonitorsTriple,
		Roles:       [3]xapi.MonitorRole{xapi.RoleSecond, xapi.RoleFirst, xapi.RoleAuto},
	},
	{
		Option:      4,
		Label:       "Normal View 2",
		Description: "Content right",
		Monitors:    xapi.MonitorsTriple,
		Roles:       [3]xapi.MonitorRole{xapi.RoleFirst, xapi.RoleSecond, xapi.RoleAuto},
	},
}

// LayoutFor returns the layout for an option code.
func LayoutFor(option int) (Layout, bool) {
	for _, l := range Layouts {
		if l.Option == option {
			return l, true
		}
	}
	return Layout{}, false
}
