package cli

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
	"github.com/ALT-F4-LLC/fixtrack/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:         "rules",
	Short:       "Manage excluded analysis rules",
	Annotations: map[string]string{skipDB: "true"},
}

func loadRules(cmd *cobra.Command) (*rules.FileProvider, mapset.Set[string]) {
	p := rules.NewFileProvider(getSettings(cmd).ExclusionRulesPath, rules.WithLogger(getLogger(cmd)))
	return p, p.Rules()
}

func sortedRules(set mapset.Set[string]) []string {
	out := set.ToSlice()
	slices.Sort(out)
	return out
}

var rulesListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List excluded rule IDs",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		p, set := loadRules(cmd)
		ids := sortedRules(set)

		var msg string
		if !w.JSONMode {
			if len(ids) == 0 {
				msg = render.EmptyState("No rules excluded.", "Exclude one with: fixtrack rules add <rule>", w.QuietMode)
			} else {
				msg = strings.Join(ids, "\n")
			}
		}
		w.Success(struct {
			Path  string   `json:"path"`
			Rules []string `json:"rules"`
		}{p.Path(), ids}, msg)
		return nil
	},
}

// editRules applies fn to the current rule set and writes the result back.
func editRules(cmd *cobra.Command, ids []string, verb string, fn func(set mapset.Set[string], id string) bool) error {
	w := getWriter(cmd)
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return cmdErr(fmt.Errorf("rule id must not be empty"), output.ErrValidation)
		}
	}

	p, set := loadRules(cmd)
	changed := 0
	for _, id := range ids {
		if fn(set, id) {
			changed++
		}
	}
	if changed > 0 {
		if err := rules.Save(p.Path(), set); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
	}

	w.Success(sortedRules(set), fmt.Sprintf("%s %d rule(s); %d excluded", verb, changed, set.Cardinality()))
	return nil
}

var rulesAddCmd = &cobra.Command{
	Use:         "add <rule>...",
	Short:       "Exclude rule IDs from remediation",
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{skipDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRules(cmd, args, "Added", func(set mapset.Set[string], id string) bool {
			return set.Add(id)
		})
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:         "remove <rule>...",
	Short:       "Stop excluding rule IDs",
	Aliases:     []string{"rm"},
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{skipDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRules(cmd, args, "Removed", func(set mapset.Set[string], id string) bool {
			if !set.Contains(id) {
				return false
			}
			set.Remove(id)
			return true
		})
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesRemoveCmd)
	rootCmd.AddCommand(rulesCmd)
}
