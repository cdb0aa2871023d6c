package builder

import "encoding/xml"

const extensionsVersion = "1.10"

// Appearance controls how generated panels look on the touch panel.
type Appearance struct {
	Order       int    `yaml:"order"`
	Origin      string `yaml:"origin"`
	Location    string `yaml:"location"`
	Color       string `yaml:"color"`
	PresetIcon  string `yaml:"presetIcon"`
	MonitorIcon string `yaml:"monitorIcon"`
	MonitorName string `yaml:"monitorName"`
}

func DefaultAppearance() Appearance {
	return Appearance{
		Order:       10,
		Origin:      "local",
		Location:    "HomeScreenAndCallControls",
		Color:       "#008094",
		PresetIcon:  "Camera",
		MonitorIcon: "Tv",
		MonitorName: "Monitors",
	}
}

type extensions struct {
	XMLName xml.Name `xml:"Extensions"`
	Version string   `xml:"Version"`
	Panel   panelDef `xml:"Panel"`
}

type panelDef struct {
	Order        int    `xml:"Order"`
	PanelID      string `xml:"PanelId"`
	Origin       string `xml:"Origin"`
	Location     string `xml:"Location"`
	Icon         string `xml:"Icon"`
	Color        string `xml:"Color"`
	Name         string `xml:"Name"`
	ActivityType string `xml:"ActivityType"`
}

// panelXML renders the extension document for one custom panel.
func panelXML(a Appearance, id, icon, name string) ([]byte, error) {
	doc := extensions{
		Version: extensionsVersion,
		Panel: panelDef{
			Order:        a.Order,
			PanelID:      id,
			Origin:       a.Origin,
			Location:     a.Location,
			Icon:         icon,
			Color:        a.Color,
			Name:         name,
			ActivityType: "Custom",
		},
	}
	return xml.MarshalIndent(doc, "", "  ")
}
