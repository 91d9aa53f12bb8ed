package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mindwell/recall/internal/agent"
	"github.com/mindwell/recall/internal/notify"
	"github.com/mindwell/recall/pkg/types"
)

var (
	ingestType       string
	ingestConfidence float64
	ingestMeta       []string
	ingestToInbox    bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [content...]",
		Short: "Ingest a data item into the memory store",
		Long: "Writes one item directly into the store, or, with --inbox, drops it into\n" +
			"the watched inbox directory for a running service to pick up.",
		Args: cobra.MinimumNArgs(1),
		Run:  runIngest,
	}
	cmd.Flags().StringVarP(&ingestType, "type", "t", types.IngestTypeNote, "Item type: transcription, note, health_data, or event")
	cmd.Flags().Float64Var(&ingestConfidence, "confidence", 0.8, "Item confidence (0.0-1.0)")
	cmd.Flags().StringArrayVarP(&ingestMeta, "meta", "m", nil, "Metadata key=value pairs (repeatable)")
	cmd.Flags().BoolVar(&ingestToInbox, "inbox", false, "Drop the item into the configured inbox instead of writing directly")
	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	item := agent.IngestItem{
		Type:       ingestType,
		Content:    strings.Join(args, " "),
		Confidence: ingestConfidence,
		Metadata:   parseMeta(ingestMeta),
	}

	if ingestToInbox {
		if cfg.Ingest.WatchDir == "" {
			exitErr("ingest", fmt.Errorf("--inbox requires ingest.watch_dir to be configured"))
		}
		if err := notify.NewInboxWriter(cfg.Ingest.WatchDir).Write(item); err != nil {
			exitErr("write inbox item", err)
		}
		fmt.Println("dropped into inbox")
		return
	}

	store := openStore(cfg)
	defer store.Close()

	router := buildRouter(cfg, store)
	if err := router.IngestData(cmd.Context(), item); err != nil {
		exitErr("ingest item", err)
	}
	fmt.Println("ingested")
}

func parseMeta(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			exitErr("parse metadata", fmt.Errorf("expected key=value, got %q", pair))
		}
		meta[key] = value
	}
	return meta
}
