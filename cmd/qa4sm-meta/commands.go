package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-qa4sm/infrastructure/metadata"
	"github.com/ahrav/go-qa4sm/internal/domain"
)

type datasetView struct {
	ID      int            `json:"id"`
	Index   int            `json:"index"`
	Role    string         `json:"role"`
	Dataset domain.Dataset `json:"dataset"`
}

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets FILE",
		Short: "List the reference and the compared datasets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			reg := res.Registry
			var views []datasetView
			var rows [][]string
			for i, ref := range reg.All() {
				role := "candidate"
				if i == 0 {
					role = "reference"
				}
				views = append(views, datasetView{ID: ref.ID, Index: reg.IndexOf(ref.ID), Role: role, Dataset: ref.Dataset})
				rows = append(rows, []string{
					strconv.Itoa(ref.ID),
					strconv.Itoa(reg.IndexOf(ref.ID)),
					role,
					ref.Dataset.ShortName,
					ref.Dataset.PrettyName,
					ref.Dataset.ShortVersion,
					ref.Dataset.PrettyVersion,
				})
			}
			return a.renderer(cmd).render(views,
				[]string{"ID", "Index", "Role", "Short name", "Pretty name", "Version", "Pretty version"}, rows)
		},
	}
}

type variableView struct {
	Name          string `json:"name"`
	Metric        string `json:"metric"`
	Group         string `json:"group"`
	Bound         string `json:"bound,omitempty"`
	Reference     string `json:"reference"`
	MetricDataset string `json:"metric_dataset,omitempty"`
	Other         string `json:"other_dataset,omitempty"`
	PrettyName    string `json:"pretty_name"`
	HasValues     bool   `json:"has_values"`
}

func newVariableView(v domain.MetricVariable) variableView {
	view := variableView{
		Name:       v.Name,
		Metric:     v.Metric,
		Group:      v.Group.String(),
		Bound:      string(v.Bound),
		Reference:  v.Reference.String(),
		PrettyName: v.PrettyName,
		HasValues:  v.HasValues(),
	}
	if v.MetricDataset != nil {
		view.MetricDataset = v.MetricDataset.String()
	}
	if v.Other != nil {
		view.Other = v.Other.String()
	}
	return view
}

func newVariablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variables FILE",
		Short: "Decode every metric variable of a result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := struct {
				Variables []variableView `json:"variables"`
				Skipped   []string       `json:"skipped"`
			}{Skipped: res.Skipped}
			var rows [][]string
			for _, v := range res.Variables {
				view := newVariableView(v)
				out.Variables = append(out.Variables, view)
				rows = append(rows, []string{
					view.Name, view.Metric, view.Group, orDash(view.Bound), view.Reference,
					orDash(view.MetricDataset), orDash(view.Other), oneLine(view.PrettyName),
					strconv.FormatBool(view.HasValues),
				})
			}
			return a.renderer(cmd).render(out,
				[]string{"Name", "Metric", "Group", "Bound", "Reference", "Metric dataset", "Other", "Pretty name", "Values"},
				rows)
		},
	}
}

type metricView struct {
	Name        string   `json:"name"`
	PrettyName  string   `json:"pretty_name"`
	Group       string   `json:"group"`
	HasCI       bool     `json:"has_confidence_intervals"`
	Variables   int      `json:"variables"`
	Description string   `json:"description,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics FILE",
		Short: "Aggregate the metric variables of a result into metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var views []metricView
			var rows [][]string
			for _, m := range res.Metrics {
				views = append(views, metricView{
					Name:        m.Name,
					PrettyName:  m.PrettyName,
					Group:       m.Group.String(),
					HasCI:       m.HasConfidenceIntervals,
					Variables:   len(m.Variables),
					Description: m.Description,
					Min:         m.Range.Min,
					Max:         m.Range.Max,
				})
				rows = append(rows, []string{
					m.Name, m.PrettyName, m.Group.String(),
					strconv.FormatBool(m.HasConfidenceIntervals),
					strconv.Itoa(len(m.Variables)),
					orDash(m.Description),
					formatRange(m.Range),
				})
			}
			return a.renderer(cmd).render(views,
				[]string{"Metric", "Pretty name", "Group", "CI", "Variables", "Description", "Range"}, rows)
		},
	}
}

func formatRange(r domain.ValueRange) string {
	bound := func(p *float64, open string) string {
		if p == nil {
			return open
		}
		return strconv.FormatFloat(*p, 'g', -1, 64)
	}
	return "[" + bound(r.Min, "-inf") + ", " + bound(r.Max, "inf") + "]"
}

// labelPlan lists the labels that make sense for each group.
var labelPlan = map[domain.Group]struct {
	titles    []metadata.LabelKind
	filenames []metadata.LabelKind
	captions  []bool
}{
	domain.GroupCommon: {
		titles:    []metadata.LabelKind{metadata.BoxplotBasic},
		filenames: []metadata.LabelKind{metadata.BoxplotBasic, metadata.MapplotCommon},
	},
	domain.GroupPairwise: {
		titles:    []metadata.LabelKind{metadata.BoxplotBasic, metadata.MapplotBasic},
		filenames: []metadata.LabelKind{metadata.BoxplotBasic, metadata.MapplotDouble},
		captions:  []bool{false},
	},
	domain.GroupTripleCollocation: {
		titles:    []metadata.LabelKind{metadata.BoxplotTC, metadata.MapplotTC},
		filenames: []metadata.LabelKind{metadata.BoxplotTC, metadata.MapplotTC},
		captions:  []bool{false, true},
	},
}

// errVariableNotFound reports a metric variable name absent from the result.
var errVariableNotFound = errors.New("variable not found in result")

type labelView struct {
	Variable string `json:"variable"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
}

func newLabelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "labels FILE VARIABLE...",
		Short: "Render plot titles, box captions and file names for variables",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			byName := make(map[string]domain.MetricVariable, len(res.Variables))
			for _, v := range res.Variables {
				byName[v.Name] = v
			}

			labels := metadata.NewLabels(a.grammar)
			parser := metadata.NewParser(a.grammar)
			var views []labelView
			for _, name := range args[1:] {
				v, ok := byName[name]
				if !ok {
					if !parser.Parse(name).IsMetric() {
						return fmt.Errorf("%w: %q", domain.ErrNotAMetricVariable, name)
					}
					return fmt.Errorf("%w: %q", errVariableNotFound, name)
				}
				vs, err := variableLabels(labels, v)
				if err != nil {
					return err
				}
				views = append(views, vs...)
			}

			rows := make([][]string, len(views))
			for i, l := range views {
				rows[i] = []string{l.Variable, l.Label, l.Kind, oneLine(l.Text)}
			}
			return a.renderer(cmd).render(views, []string{"Variable", "Label", "Kind", "Text"}, rows)
		},
	}
}

func variableLabels(labels *metadata.Labels, v domain.MetricVariable) ([]labelView, error) {
	plan := labelPlan[v.Group]
	var out []labelView
	for _, kind := range plan.titles {
		text, err := labels.Title(v, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, labelView{Variable: v.Name, Label: "title", Kind: string(kind), Text: text})
	}
	for _, kind := range plan.filenames {
		text, err := labels.Filename(v, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, labelView{Variable: v.Name, Label: "filename", Kind: string(kind), Text: text})
	}
	for _, tc := range plan.captions {
		text, err := labels.BoxCaption(v, tc)
		if err != nil {
			return nil, err
		}
		kind := "metric"
		if tc {
			kind = "other"
		}
		out = append(out, labelView{Variable: v.Name, Label: "caption", Kind: kind, Text: text})
	}
	return out, nil
}

type parsedView struct {
	Name   string              `json:"name"`
	Group  string              `json:"group"`
	Metric string              `json:"metric,omitempty"`
	Bound  string              `json:"bound,omitempty"`
	IDs    map[domain.Role]int `json:"ids,omitempty"`
}

// roleOrder fixes the column order of parsed ids.
var roleOrder = []domain.Role{
	domain.RoleReference, domain.RoleMetric, domain.RoleSatellite0, domain.RoleSatellite1,
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse NAME...",
		Short: "Classify variable names without a result file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := metadata.NewParser(a.grammar)

			views := make([]parsedView, len(args))
			rows := make([][]string, len(args))
			for i, name := range args {
				p := parser.Parse(name)
				views[i] = parsedView{Name: name, Group: p.Group.String(), Metric: p.Metric, Bound: string(p.Bound), IDs: p.Refs}

				var ids []string
				for _, role := range roleOrder {
					if id, ok := p.Ref(role); ok {
						ids = append(ids, fmt.Sprintf("%s=%d", role, id))
					}
				}
				rows[i] = []string{name, p.Group.String(), orDash(p.Metric), orDash(string(p.Bound)), orDash(strings.Join(ids, " "))}
			}
			return a.renderer(cmd).render(views, []string{"Name", "Group", "Metric", "Bound", "IDs"}, rows)
		},
	}
}

type groupView struct {
	Group   string   `json:"group"`
	Metrics []string `json:"metrics"`
	CI      bool     `json:"confidence_intervals"`
}

func newGrammarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grammar",
		Short: "Show the naming grammar in parse priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := struct {
				Version string      `json:"version"`
				Groups  []groupView `json:"groups"`
			}{Version: a.grammar.Version()}

			var rows [][]string
			for _, grp := range a.grammar.Groups() {
				gv := groupView{Group: grp.String(), Metrics: a.grammar.GroupMetrics(grp), CI: a.grammar.HasCI(grp)}
				out.Groups = append(out.Groups, gv)
				rows = append(rows, []string{gv.Group, strings.Join(gv.Metrics, ", "), strconv.FormatBool(gv.CI)})
			}

			if a.opts.output == formatTable {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "grammar %s\n", out.Version); err != nil {
					return err
				}
			}
			return a.renderer(cmd).render(out, []string{"Group", "Metrics", "CI"}, rows)
		},
	}
}
