package metadata

import (
	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/ports"
)

var _ ports.NameParser = (*Parser)(nil)

// Parser matches variable names against the metric grammar.
type Parser struct {
	grammar *Grammar
}

// NewParser returns a Parser for g.
func NewParser(g *Grammar) *Parser { return &Parser{grammar: g} }

// Parse matches name against every metric group in priority order. For
// each group the primary template is tried before the confidence interval
// template, and a match only counts when the captured metric belongs to the
// group. The first accepted match wins.
//
// Parse never fails: names outside the grammar, such as coordinate or
// bookkeeping variables, come back with Group set to domain.GroupNone.
func (p *Parser) Parse(name string) domain.ParsedName {
	for _, gg := range p.grammar.groups {
		if parsed, ok := matchGroup(gg, gg.primary, name, false); ok {
			return parsed
		}
		if gg.ci == nil {
			continue
		}
		if parsed, ok := matchGroup(gg, gg.ci, name, true); ok {
			return parsed
		}
	}
	return domain.NotAMetric(name)
}

func matchGroup(gg *groupGrammar, t *Template, name string, ci bool) (domain.ParsedName, bool) {
	fields, ok := t.Match(name)
	if !ok {
		return domain.ParsedName{}, false
	}
	metric, _ := fields.Text(metricField)
	if !gg.knows(metric) {
		return domain.ParsedName{}, false
	}

	parsed := domain.ParsedName{
		Name:   name,
		Metric: metric,
		Group:  gg.group,
		Refs:   make(map[domain.Role]int, gg.group.Arity()+1),
	}
	if ci {
		raw, _ := fields.Text(boundField)
		bound, ok := domain.ParseBound(raw)
		if !ok {
			return domain.ParsedName{}, false
		}
		parsed.Bound = bound
	}
	for field, role := range roleFields {
		if !t.HasField(field) {
			continue
		}
		id, ok := fields.Int(field)
		if !ok {
			return domain.ParsedName{}, false
		}
		parsed.Refs[role] = id
	}
	return parsed, true
}
