package sarif

// Level is the SARIF severity of a result
type Level string

// SARIF levels and schema
const (
	None    = Level("none")
	Note    = Level("note")
	Warning = Level("warning")
	Error   = Level("error")

	Version = "2.1.0"
	Schema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

// Report is the top level SARIF log
type Report struct {
	Schema  string `json:"$schema,omitempty"`
	Version string `json:"version"`
	Runs    []*Run `json:"runs"`
}

// Run describes a single invocation of an analysis tool
type Run struct {
	Tool       *Tool            `json:"tool"`
	Taxonomies []*ToolComponent `json:"taxonomies,omitempty"`
	Results    []*Result        `json:"results"`
}

// Tool is the analysis tool that was run
type Tool struct {
	Driver *ToolComponent `json:"driver"`
}

// ToolComponent is a component of a tool or a taxonomy it refers to
type ToolComponent struct {
	Name                                        string                    `json:"name"`
	GUID                                        string                    `json:"guid,omitempty"`
	Version                                     string                    `json:"version,omitempty"`
	SemanticVersion                             string                    `json:"semanticVersion,omitempty"`
	InformationURI                              string                    `json:"informationUri,omitempty"`
	DownloadURI                                 string                    `json:"downloadUri,omitempty"`
	Organization                                string                    `json:"organization,omitempty"`
	ReleaseDateUtc                              string                    `json:"releaseDateUtc,omitempty"`
	Language                                    string                    `json:"language,omitempty"`
	ShortDescription                            *MultiformatMessageString `json:"shortDescription,omitempty"`
	IsComprehensive                             bool                      `json:"isComprehensive,omitempty"`
	MinimumRequiredLocalizedDataSemanticVersion string                    `json:"minimumRequiredLocalizedDataSemanticVersion,omitempty"`
	Rules                                       []*ReportingDescriptor    `json:"rules,omitempty"`
	Taxa                                        []*ReportingDescriptor    `json:"taxa,omitempty"`
	SupportedTaxonomies                         []*ToolComponentReference `json:"supportedTaxonomies,omitempty"`
}

// ToolComponentReference identifies a tool component by name
type ToolComponentReference struct {
	Name string `json:"name,omitempty"`
	GUID string `json:"guid,omitempty"`
}

// ReportingDescriptor describes a rule or a taxon
type ReportingDescriptor struct {
	ID                   string                             `json:"id"`
	GUID                 string                             `json:"guid,omitempty"`
	Name                 string                             `json:"name,omitempty"`
	ShortDescription     *MultiformatMessageString          `json:"shortDescription,omitempty"`
	FullDescription      *MultiformatMessageString          `json:"fullDescription,omitempty"`
	Help                 *MultiformatMessageString          `json:"help,omitempty"`
	HelpURI              string                             `json:"helpUri,omitempty"`
	Properties           *PropertyBag                       `json:"properties,omitempty"`
	DefaultConfiguration *ReportingConfiguration            `json:"defaultConfiguration,omitempty"`
	Relationships        []*ReportingDescriptorRelationship `json:"relationships,omitempty"`
}

// ReportingDescriptorReference points at a rule or taxon of another component
type ReportingDescriptorReference struct {
	ID            string                  `json:"id,omitempty"`
	GUID          string                  `json:"guid,omitempty"`
	ToolComponent *ToolComponentReference `json:"toolComponent,omitempty"`
}

// ReportingDescriptorRelationship relates a rule to a taxon
type ReportingDescriptorRelationship struct {
	Target *ReportingDescriptorReference `json:"target"`
	Kinds  []string                      `json:"kinds,omitempty"`
}

// ReportingConfiguration holds the default settings of a rule
type ReportingConfiguration struct {
	Level Level `json:"level,omitempty"`
}

// MultiformatMessageString is a plain text message
type MultiformatMessageString struct {
	Text string `json:"text"`
}

// PropertyBag holds free form properties
type PropertyBag map[string]interface{}

// Result is one finding
type Result struct {
	RuleID    string      `json:"ruleId"`
	RuleIndex int         `json:"ruleIndex"`
	Level     Level       `json:"level"`
	Message   *Message    `json:"message"`
	Locations []*Location `json:"locations,omitempty"`
}

// Message is the text of a result
type Message struct {
	Text string `json:"text"`
}

// Location ties a result to an address and the function containing it
type Location struct {
	PhysicalLocation *PhysicalLocation  `json:"physicalLocation,omitempty"`
	LogicalLocations []*LogicalLocation `json:"logicalLocations,omitempty"`
}

// PhysicalLocation is a location inside an artifact
type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
	Address          *Address          `json:"address,omitempty"`
	Region           *Region           `json:"region,omitempty"`
}

// ArtifactLocation names the analyzed artifact
type ArtifactLocation struct {
	URI string `json:"uri,omitempty"`
}

// Address is a location in the address space of the analyzed binary
type Address struct {
	AbsoluteAddress    uint64 `json:"absoluteAddress"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

// LogicalLocation is a named program construct such as a function
type LogicalLocation struct {
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// Region carries the offending statement as a snippet
type Region struct {
	Snippet *ArtifactContent `json:"snippet,omitempty"`
}

// ArtifactContent is the text of a region
type ArtifactContent struct {
	Text string `json:"text,omitempty"`
}
