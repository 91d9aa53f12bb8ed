package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var queryJSON bool

func init() {
	cmd := &cobra.Command{
		Use:   "query [text...]",
		Short: "Process a query through the routing pipeline",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQuery,
	}
	cmd.Flags().BoolVar(&queryJSON, "json", false, "Print the full response as JSON")
	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store := openStore(cfg)
	defer store.Close()

	router := buildRouter(cfg, store)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if err := router.Initialize(ctx); err != nil {
		exitErr("initialize router", err)
	}
	defer func() { _ = router.Shutdown(context.Background()) }()

	resp, err := router.ProcessQuery(ctx, strings.Join(args, " "))
	if err != nil {
		exitErr("process query", err)
	}

	if queryJSON {
		b, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Println(resp.Content)
	fmt.Printf("\n[%s via %s, on-device=%v, privacy=%s, %s]\n",
		resp.ModelUsed, resp.Provider, resp.IsOnDevice, resp.PrivacyLevel, resp.ProcessingTime.Round(time.Millisecond))
}
