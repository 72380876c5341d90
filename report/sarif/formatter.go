package sarif

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/securego/cfiverify"
	"github.com/securego/cfiverify/cwe"
	"github.com/securego/cfiverify/issue"
)

// GenerateReport converts a verification report into a SARIF report.
// artifact names the analyzed binary and may be empty.
func GenerateReport(artifact string, data *cfiverify.ReportInfo) *Report {
	type rule struct {
		index int
		rule  *ReportingDescriptor
	}

	rules := make([]*ReportingDescriptor, 0)
	rulesIndices := make(map[string]rule)
	lastRuleIndex := -1

	results := []*Result{}
	cweTaxa := make([]*ReportingDescriptor, 0)
	weaknesses := make(map[string]*cwe.Weakness)

	for _, iss := range data.Issues {
		if iss.Cwe != nil {
			if _, ok := weaknesses[iss.Cwe.ID]; !ok {
				weaknesses[iss.Cwe.ID] = iss.Cwe
				cweTaxa = append(cweTaxa, parseSarifTaxon(iss.Cwe))
			}
		}

		r, ok := rulesIndices[iss.RuleID]
		if !ok {
			lastRuleIndex++
			r = rule{index: lastRuleIndex, rule: parseSarifRule(iss)}
			rulesIndices[iss.RuleID] = r
			rules = append(rules, r.rule)
		}

		result := NewResult(r.rule.ID, r.index, getSarifLevel(iss.Severity), iss.What).
			WithLocations(parseSarifLocation(artifact, iss))

		results = append(results, result)
	}

	sort.SliceStable(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	sort.SliceStable(cweTaxa, func(i, j int) bool { return cweTaxa[i].ID < cweTaxa[j].ID })

	tool := NewTool(buildSarifDriver(rules, data.Version))

	run := NewRun(tool).
		WithTaxonomies(buildCWETaxonomy(cweTaxa)).
		WithResults(results...)

	return NewReport(Version, Schema).
		WithRuns(run)
}

// parseSarifRule return SARIF rule field struct
func parseSarifRule(iss *issue.Issue) *ReportingDescriptor {
	name := iss.RuleID
	if iss.Cwe != nil {
		name = iss.Cwe.Name
	}
	descriptor := &ReportingDescriptor{
		ID:               iss.RuleID,
		Name:             name,
		ShortDescription: NewMultiformatMessageString(iss.What),
		FullDescription:  NewMultiformatMessageString(iss.What),
		Help: NewMultiformatMessageString(fmt.Sprintf("%s\nSeverity: %s\nConfidence: %s\n",
			iss.What, iss.Severity.String(), iss.Confidence.String())),
		Properties: &PropertyBag{
			"tags":      []string{"security", "cfi", iss.Severity.String()},
			"precision": strings.ToLower(iss.Confidence.String()),
		},
		DefaultConfiguration: &ReportingConfiguration{
			Level: getSarifLevel(iss.Severity),
		},
	}
	if iss.Cwe != nil {
		descriptor.Relationships = []*ReportingDescriptorRelationship{
			buildSarifReportingDescriptorRelationship(iss.Cwe),
		}
	}
	return descriptor
}

func buildSarifReportingDescriptorRelationship(weakness *cwe.Weakness) *ReportingDescriptorRelationship {
	return &ReportingDescriptorRelationship{
		Target: &ReportingDescriptorReference{
			ID:            weakness.ID,
			GUID:          uuid3(weakness.SprintID()),
			ToolComponent: NewToolComponentReference(cwe.Acronym),
		},
		Kinds: []string{"superset"},
	}
}

func buildCWETaxonomy(taxa []*ReportingDescriptor) *ToolComponent {
	taxonomy := NewToolComponent(cwe.Acronym, cwe.Version, cwe.InformationURI)
	taxonomy.ReleaseDateUtc = cwe.ReleaseDateUtc
	taxonomy.DownloadURI = cwe.DownloadURI
	taxonomy.Organization = cwe.Organization
	taxonomy.ShortDescription = NewMultiformatMessageString(cwe.Description)
	taxonomy.IsComprehensive = true
	taxonomy.Language = "en"
	taxonomy.MinimumRequiredLocalizedDataSemanticVersion = cwe.Version
	taxonomy.Taxa = taxa
	return taxonomy
}

func parseSarifTaxon(weakness *cwe.Weakness) *ReportingDescriptor {
	return &ReportingDescriptor{
		ID:               weakness.ID,
		GUID:             uuid3(weakness.SprintID()),
		HelpURI:          weakness.SprintURL(),
		FullDescription:  NewMultiformatMessageString(weakness.Description),
		ShortDescription: NewMultiformatMessageString(weakness.Name),
	}
}

func parseSemanticVersion(version string) string {
	if len(version) == 0 {
		return "devel"
	}
	return strings.TrimPrefix(version, "v")
}

func buildSarifDriver(rules []*ReportingDescriptor, version string) *ToolComponent {
	return NewToolComponent("cfiverify", version, "https://github.com/securego/cfiverify/").
		WithSemanticVersion(parseSemanticVersion(version)).
		WithSupportedTaxonomies(NewToolComponentReference(cwe.Acronym)).
		WithRules(rules...)
}

func uuid3(value string) string {
	return uuid.NewMD5(uuid.Nil, []byte(value)).String()
}

// parseSarifLocation places an issue at its instruction address and names
// the enclosing function as a logical location.
func parseSarifLocation(artifact string, iss *issue.Issue) *Location {
	var artifactLocation *ArtifactLocation
	if artifact != "" {
		artifactLocation = NewArtifactLocation(artifact)
	}
	region := NewRegion(NewArtifactContent(iss.Code))
	physical := NewPhysicalLocation(artifactLocation, NewAddress(iss.Address, iss.Function), region)
	return NewLocation(physical).
		WithLogicalLocations(NewLogicalLocation(iss.Function, "function"))
}

func getSarifLevel(s issue.Score) Level {
	switch s {
	case issue.Low:
		return Warning
	case issue.Medium, issue.High:
		return Error
	default:
		return Note
	}
}
