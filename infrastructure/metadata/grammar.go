package metadata

import (
	"bytes"
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// Template field names with a fixed meaning.
const (
	indexField  = "index"
	metricField = "metric"
	boundField  = "bound"
	refIDField  = "ref_id"
	mdsIDField  = "mds_id"
	sat0IDField = "sat_id0"
	sat1IDField = "sat_id1"

	// Fields available to pretty-name templates.
	prettyMetricField   = "metric"
	prettyMetricDSField = "metric_ds"
	prettyRefDSField    = "ref_ds"
	prettyOtherDSField  = "other_ds"

	// maxSuggestionDistance bounds the edit distance of a metric suggestion.
	maxSuggestionDistance = 3
)

// roleFields maps the id fields of a name template to dataset roles.
var roleFields = map[string]domain.Role{
	refIDField:  domain.RoleReference,
	mdsIDField:  domain.RoleMetric,
	sat0IDField: domain.RoleSatellite0,
	sat1IDField: domain.RoleSatellite1,
}

// requiredIDFields lists the id fields each group's name templates must carry.
var requiredIDFields = map[domain.Group][]string{
	domain.GroupCommon:            nil,
	domain.GroupPairwise:          {refIDField, sat0IDField},
	domain.GroupTripleCollocation: {refIDField, mdsIDField, sat0IDField, sat1IDField},
}

//go:embed grammar.yaml
var defaultGrammarYAML []byte

// Definition is the declarative form of the naming grammar as stored in
// YAML. It is compiled into a Grammar by NewGrammar.
type Definition struct {
	// Version identifies the naming convention revision.
	Version string `yaml:"version" validate:"required"`

	// Attributes holds the global attribute key templates.
	Attributes AttributeKeys `yaml:"attributes" validate:"required"`

	// Groups defines the name grammar of every metric group.
	Groups []GroupDefinition `yaml:"groups" validate:"required,min=1,dive"`

	// Priority is the order groups are tried in when parsing a name.
	Priority []string `yaml:"priority" validate:"required,min=1,dive,oneof=common pairwise triple_collocation"`

	// Metrics is the metric catalogue keyed by metric token.
	Metrics map[string]MetricDefinition `yaml:"metrics" validate:"required,min=1,dive"`

	// Units maps a reference dataset short name to the unit of its values.
	Units map[string]string `yaml:"units"`

	// CIPrefix is prepended to the pretty name of confidence interval
	// variables.
	CIPrefix string `yaml:"ci_prefix" validate:"required"`
}

// AttributeKeys are the global attribute key templates. Reference is a
// literal key whose value is the short-name key of the reference dataset.
type AttributeKeys struct {
	Reference     string `yaml:"reference" validate:"required"`
	ShortName     string `yaml:"short_name" validate:"required,keytemplate"`
	PrettyName    string `yaml:"pretty_name" validate:"required,keytemplate"`
	ShortVersion  string `yaml:"short_version" validate:"required,keytemplate"`
	PrettyVersion string `yaml:"pretty_version" validate:"required,keytemplate"`
}

// GroupDefinition describes how variable names of one metric group look.
type GroupDefinition struct {
	Name       string   `yaml:"name" validate:"required,oneof=common pairwise triple_collocation"`
	Metrics    []string `yaml:"metrics" validate:"required,min=1,dive,required"`
	Template   string   `yaml:"template" validate:"required,nametemplate"`
	CITemplate string   `yaml:"ci_template" validate:"omitempty,nametemplate"`
	PrettyName string   `yaml:"pretty_name" validate:"required,nametemplate"`
}

// MetricDefinition is one catalogue entry. Description may contain a
// "{unit}" placeholder filled with the reference dataset's unit.
type MetricDefinition struct {
	PrettyName  string            `yaml:"pretty_name" validate:"required"`
	Description string            `yaml:"description"`
	Range       domain.ValueRange `yaml:"range"`
}

// DefaultDefinition decodes the embedded qa4sm naming convention.
func DefaultDefinition() (Definition, error) {
	return DecodeDefinition(defaultGrammarYAML)
}

// DecodeDefinition strictly decodes a YAML grammar definition. Unknown
// fields are rejected.
func DecodeDefinition(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("YAML decode failed: %w", err)
	}
	return def, nil
}

var defaultGrammar = sync.OnceValues(func() (*Grammar, error) {
	def, err := DefaultDefinition()
	if err != nil {
		return nil, err
	}
	return NewGrammar(def)
})

// Default returns the compiled embedded grammar. It is built once per
// process and shared.
func Default() (*Grammar, error) { return defaultGrammar() }

// keyTemplates are the compiled attribute key templates.
type keyTemplates struct {
	reference     string
	shortName     *Template
	prettyName    *Template
	shortVersion  *Template
	prettyVersion *Template
}

// groupGrammar is the compiled grammar of one metric group.
type groupGrammar struct {
	group   domain.Group
	metrics map[string]struct{}
	order   []string
	primary *Template
	ci      *Template
	pretty  *Template
}

func (g *groupGrammar) knows(metric string) bool {
	_, ok := g.metrics[metric]
	return ok
}

// Grammar is the compiled naming grammar. It is immutable and shared by
// reference between the registry, parser, resolver and aggregator.
type Grammar struct {
	version  string
	keys     keyTemplates
	groups   []*groupGrammar
	byGroup  map[domain.Group]*groupGrammar
	metrics  map[string]MetricDefinition
	units    map[string]string
	ciPrefix string
}

// NewGrammar validates def and compiles it.
func NewGrammar(def Definition) (*Grammar, error) {
	if err := validate.Struct(def); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	g := &Grammar{
		version:  def.Version,
		byGroup:  make(map[domain.Group]*groupGrammar, len(def.Groups)),
		metrics:  def.Metrics,
		units:    def.Units,
		ciPrefix: def.CIPrefix,
	}
	if g.units == nil {
		g.units = map[string]string{}
	}

	verr := domain.NewValidationError("grammar")

	var err error
	g.keys.reference = def.Attributes.Reference
	if g.keys.shortName, err = CompileTemplate(def.Attributes.ShortName); err != nil {
		verr.Addf("attributes.short_name: %v", err)
	}
	if g.keys.prettyName, err = CompileTemplate(def.Attributes.PrettyName); err != nil {
		verr.Addf("attributes.pretty_name: %v", err)
	}
	if g.keys.shortVersion, err = CompileTemplate(def.Attributes.ShortVersion); err != nil {
		verr.Addf("attributes.short_version: %v", err)
	}
	if g.keys.prettyVersion, err = CompileTemplate(def.Attributes.PrettyVersion); err != nil {
		verr.Addf("attributes.pretty_version: %v", err)
	}

	for _, gd := range def.Groups {
		gg, err := compileGroup(gd, def.Metrics)
		if err != nil {
			verr.AddError(err.Error())
			continue
		}
		if _, dup := g.byGroup[gg.group]; dup {
			verr.Addf("group %s defined twice", gd.Name)
			continue
		}
		g.byGroup[gg.group] = gg
	}

	seen := make(map[domain.Group]bool, len(def.Priority))
	for _, name := range def.Priority {
		grp, _ := domain.ParseGroup(name)
		if seen[grp] {
			verr.Addf("priority lists %s twice", name)
			continue
		}
		seen[grp] = true
		gg, ok := g.byGroup[grp]
		if !ok {
			verr.Addf("priority lists undefined group %s", name)
			continue
		}
		g.groups = append(g.groups, gg)
	}
	for grp := range g.byGroup {
		if !seen[grp] {
			verr.Addf("group %s missing from priority", grp)
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return g, nil
}

func compileGroup(gd GroupDefinition, catalogue map[string]MetricDefinition) (*groupGrammar, error) {
	grp, ok := domain.ParseGroup(gd.Name)
	if !ok {
		return nil, fmt.Errorf("unknown group %q", gd.Name)
	}
	gg := &groupGrammar{
		group:   grp,
		metrics: make(map[string]struct{}, len(gd.Metrics)),
		order:   slices.Clone(gd.Metrics),
	}
	for _, m := range gd.Metrics {
		if _, ok := catalogue[m]; !ok {
			return nil, fmt.Errorf("group %s: metric %q has no catalogue entry", gd.Name, m)
		}
		gg.metrics[m] = struct{}{}
	}

	var err error
	if gg.primary, err = compileNameTemplate(grp, gd.Template, false); err != nil {
		return nil, fmt.Errorf("group %s template: %w", gd.Name, err)
	}
	if gd.CITemplate != "" {
		if gg.ci, err = compileNameTemplate(grp, gd.CITemplate, true); err != nil {
			return nil, fmt.Errorf("group %s ci_template: %w", gd.Name, err)
		}
	}
	if gg.pretty, err = CompileTemplate(gd.PrettyName); err != nil {
		return nil, fmt.Errorf("group %s pretty_name: %w", gd.Name, err)
	}
	for _, f := range gg.pretty.FieldNames() {
		switch f {
		case prettyMetricField, prettyMetricDSField, prettyRefDSField, prettyOtherDSField:
		default:
			return nil, fmt.Errorf("group %s pretty_name: unknown field %q", gd.Name, f)
		}
	}
	return gg, nil
}

func compileNameTemplate(grp domain.Group, src string, ci bool) (*Template, error) {
	t, err := CompileTemplate(src)
	if err != nil {
		return nil, err
	}
	if !t.HasField(metricField) || t.IsIntField(metricField) {
		return nil, fmt.Errorf("template %q needs a text field %q", src, metricField)
	}
	if ci && !t.HasField(boundField) {
		return nil, fmt.Errorf("template %q needs a field %q", src, boundField)
	}
	for _, f := range requiredIDFields[grp] {
		if !t.IsIntField(f) {
			return nil, fmt.Errorf("template %q needs an integer field %q", src, f)
		}
	}
	return t, nil
}

// Version returns the naming convention revision.
func (g *Grammar) Version() string { return g.version }

// Groups returns the metric groups in parse priority order.
func (g *Grammar) Groups() []domain.Group {
	out := make([]domain.Group, len(g.groups))
	for i, gg := range g.groups {
		out[i] = gg.group
	}
	return out
}

// GroupMetrics returns the metric tokens of grp in definition order.
func (g *Grammar) GroupMetrics(grp domain.Group) []string {
	gg, ok := g.byGroup[grp]
	if !ok {
		return nil
	}
	return slices.Clone(gg.order)
}

// MetricGroup returns the first group, in priority order, whose metric set
// contains metric.
func (g *Grammar) MetricGroup(metric string) domain.Group {
	for _, gg := range g.groups {
		if gg.knows(metric) {
			return gg.group
		}
	}
	return domain.GroupNone
}

// HasCI reports whether grp has a confidence interval template.
func (g *Grammar) HasCI(grp domain.Group) bool {
	gg, ok := g.byGroup[grp]
	return ok && gg.ci != nil
}

// KnownMetrics returns every catalogued metric token in lexical order.
func (g *Grammar) KnownMetrics() []string {
	out := make([]string, 0, len(g.metrics))
	for m := range g.metrics {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Catalogue returns the catalogue entry of metric. Unknown tokens fail with
// a *domain.MetricError carrying the closest known token.
func (g *Grammar) Catalogue(metric string) (MetricDefinition, error) {
	def, ok := g.metrics[metric]
	if !ok {
		return MetricDefinition{}, &domain.MetricError{
			Metric:     metric,
			Suggestion: g.suggest(metric),
			Err:        domain.ErrUnknownMetric,
		}
	}
	return def, nil
}

// PrettyName returns the display name of metric.
func (g *Grammar) PrettyName(metric string) (string, error) {
	def, err := g.Catalogue(metric)
	if err != nil {
		return "", err
	}
	return def.PrettyName, nil
}

// Unit returns the unit of values of the dataset with the given short name,
// or "" when none is configured.
func (g *Grammar) Unit(shortName string) string { return g.units[shortName] }

// Description returns the metric description with the unit of the reference
// dataset filled in.
func (g *Grammar) Description(metric, refShortName string) (string, error) {
	def, err := g.Catalogue(metric)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(def.Description, "{unit}", g.Unit(refShortName)), nil
}

// suggest returns the known metric closest to token, compared case-folded.
func (g *Grammar) suggest(token string) string {
	// Casers carry state and are not shared between goroutines.
	caser := cases.Fold()
	folded := caser.String(token)
	best, bestDist := "", maxSuggestionDistance+1
	for _, m := range g.KnownMetrics() {
		d := levenshtein.ComputeDistance(folded, caser.String(m))
		if d < bestDist {
			best, bestDist = m, d
		}
	}
	return best
}

// NameArgs are the inputs for synthesising a variable name.
type NameArgs struct {
	Metric string
	Bound  domain.Bound

	// Refs are the dataset refs per role. Roles the group does not use are
	// ignored.
	Refs map[domain.Role]domain.DatasetRef
}

// VariableName renders a variable name for grp. The CI template is used when
// args.Bound is set.
func (g *Grammar) VariableName(grp domain.Group, args NameArgs) (string, error) {
	gg, ok := g.byGroup[grp]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownGroup, grp)
	}
	t := gg.primary
	values := map[string]any{metricField: args.Metric}
	if args.Bound != domain.BoundNone {
		if gg.ci == nil {
			return "", fmt.Errorf("%w: %s", ErrNoCITemplate, grp)
		}
		t = gg.ci
		values[boundField] = string(args.Bound)
	}
	for _, f := range t.FieldNames() {
		role, ok := roleFields[f]
		if !ok {
			continue
		}
		ref, ok := args.Refs[role]
		if !ok {
			return "", fmt.Errorf("%w: no dataset for role %s", ErrTemplateField, role)
		}
		values[f] = ref.ID
		// The text field following an id field holds the short name.
		if name := t.nameFieldAfter(f); name != "" {
			values[name] = ref.Dataset.ShortName
		}
	}
	return t.Format(values)
}

// nameFieldAfter returns the text field that directly follows the id field
// idField, separated by a single literal.
func (t *Template) nameFieldAfter(idField string) string {
	for i, p := range t.parts {
		if p.field != idField {
			continue
		}
		if i+2 < len(t.parts) && t.parts[i+1].field == "" && t.parts[i+2].field != "" && t.parts[i+2].kind == fieldText {
			return t.parts[i+2].field
		}
		return ""
	}
	return ""
}

// datasetKey renders the attribute key of the given kind for index.
func datasetKey(t *Template, index int) string {
	// Key templates are validated to have a single integer field.
	s, _ := t.Format(map[string]any{indexField: index})
	return s
}
