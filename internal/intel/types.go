package intel

// Entry holds the intel metadata of one ship class from a ship table.
type Entry struct {
	Name         string `json:"name"`
	ShortName    string `json:"short_name,omitempty"`
	POFFile      string `json:"pof_file"`
	Species      string `json:"species,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ClassType    string `json:"class_type,omitempty"`
	Type         string `json:"type,omitempty"`
	Length       string `json:"length,omitempty"`
	Description  string `json:"description,omitempty"`
	// Fields keeps every other single-line "$Key:" or "+Key:" value, keyed by the lower-cased key.
	Fields map[string]string `json:"fields,omitempty"`
}
