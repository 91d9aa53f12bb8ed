package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindwell/recall/internal/consolidation"
	"github.com/mindwell/recall/internal/privacy"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Run one consolidation sweep",
		Long: "Evaluates short-term memories past the promotion threshold and promotes\n" +
			"qualifying entries into long-term memory. Prints the sweep report.",
		Run: runConsolidate,
	}
	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store := openStore(cfg)
	defer store.Close()

	svcCfg := consolidation.DefaultConfig()
	svcCfg.PromotionThreshold = cfg.Consolidation.PromotionThreshold
	svcCfg.MinImportance = cfg.Consolidation.MinImportance

	svc, err := consolidation.NewService(store, privacy.MustNewAnalyzer(), svcCfg)
	if err != nil {
		exitErr("configure consolidation", err)
	}

	report, err := svc.Consolidate(cmd.Context())
	if err != nil {
		exitErr("consolidate", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
