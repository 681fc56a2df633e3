package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// printJSON renders any tool result as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Store, index, health, and wisdom statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			fast, _ := cmd.Flags().GetBool("fast")
			var stats map[string]any
			if err := c.CallTool("stats", map[string]any{"fast": fast}, &stats); err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(stats)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Metric", "Value"})
			table.SetBorder(false)
			for _, key := range []string{"nodes", "hot", "warm", "cold", "edges", "tags", "flagged_embeddings"} {
				table.Append([]string{key, formatStat(stats[key])})
			}
			table.Append([]string{"yantra_ready", formatStat(stats["yantra_ready"])})
			table.Append([]string{"read_only", formatStat(stats["read_only"])})
			if !fast {
				if h, ok := stats["health"].(map[string]any); ok {
					table.Append([]string{"ojas", formatStat(h["overall"])})
				}
				table.Append([]string{"status", formatStat(stats["status"])})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	cmd.Flags().Bool("fast", false, "counts only, skip health evaluation")
	return cmd
}

func formatStat(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 3, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func newRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Hybrid semantic/lexical retrieval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			mode, _ := cmd.Flags().GetString("mode")
			tag, _ := cmd.Flags().GetString("tag")

			var results []map[string]any
			err = c.CallTool("recall", map[string]any{
				"query":     args[0],
				"limit":     limit,
				"threshold": threshold,
				"mode":      mode,
				"tag":       tag,
			}, &results)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%.3f  [%s]  %s\n", r["relevance"], r["kind"], oneLine(r["text"]))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "maximum results")
	cmd.Flags().Float64("threshold", 0, "minimum relevance")
	cmd.Flags().String("mode", "hybrid", "dense|sparse|hybrid")
	cmd.Flags().String("tag", "", "restrict to nodes carrying this tag")
	return cmd
}

func oneLine(v any) string {
	s, _ := v.(string)
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func newObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe <text>",
		Short: "Store an episodic observation",
		Args:  cobra.ExactArgs(1),
		RunE:  createNodeRunE("observe"),
	}
	cmd.Flags().StringSlice("tag", nil, "tags to attach")
	return cmd
}

func newGrowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grow <text>",
		Short: "Grow a distilled insight, optionally out of a parent node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			tags, _ := cmd.Flags().GetStringSlice("tag")
			toolArgs := map[string]any{"text": args[0], "tags": tags}
			if parent, _ := cmd.Flags().GetString("parent"); parent != "" {
				toolArgs["parent"] = parent
				edgeType, _ := cmd.Flags().GetString("edge-type")
				toolArgs["edge_type"] = edgeType
			}
			var node map[string]any
			if err := c.CallTool("grow", toolArgs, &node); err != nil {
				return err
			}
			fmt.Println(node["id"])
			return nil
		},
	}
	cmd.Flags().StringSlice("tag", nil, "tags to attach")
	cmd.Flags().String("parent", "", "node id to grow out of")
	cmd.Flags().String("edge-type", "related", "edge type toward the parent")
	return cmd
}

func createNodeRunE(tool string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, _, err := dialClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		tags, _ := cmd.Flags().GetStringSlice("tag")
		var node map[string]any
		if err := c.CallTool(tool, map[string]any{"text": args[0], "tags": tags}, &node); err != nil {
			return err
		}
		fmt.Println(node["id"])
		return nil
	}
}

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <source-id> <target-id> <type>",
		Short: "Add a typed edge between two nodes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			weight, _ := cmd.Flags().GetFloat64("weight")
			return c.CallTool("connect", map[string]any{
				"source": args[0], "target": args[1], "type": args[2], "weight": weight,
			}, nil)
		},
	}
	cmd.Flags().Float64("weight", 0.5, "edge weight in [0,1]")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <text>",
		Short: "Replace a node's payload text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.CallTool("update", map[string]any{"id": args[0], "text": args[1]}, nil)
		},
	}
}

func newForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget <id>",
		Short: "Remove a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			cascade, _ := cmd.Flags().GetBool("cascade")
			rewire, _ := cmd.Flags().GetBool("rewire")
			strength, _ := cmd.Flags().GetFloat64("strength")
			return c.CallTool("forget", map[string]any{
				"id": args[0], "cascade": cascade, "rewire": rewire, "cascade_strength": strength,
			}, nil)
		},
	}
	cmd.Flags().Bool("cascade", false, "reduce neighbor confidence")
	cmd.Flags().Bool("rewire", false, "bridge inbound and outbound neighbors")
	cmd.Flags().Float64("strength", 0.1, "cascade strength")
	return cmd
}

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <add|remove> <id> <tag>",
		Short: "Tag or untag a node",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			tool := "add_tag"
			if args[0] == "remove" {
				tool = "remove_tag"
			}
			return c.CallTool(tool, map[string]any{"id": args[1], "tag": args[2]}, nil)
		},
	}
	return cmd
}

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger <save|load|list> [name] [summary]",
		Short: "Save, load, or list named session snapshots",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			switch args[0] {
			case "save":
				if len(args) != 3 {
					return fmt.Errorf("usage: ledger save <name> <summary>")
				}
				var node map[string]any
				if err := c.CallTool("ledger_save", map[string]any{"name": args[1], "summary": args[2]}, &node); err != nil {
					return err
				}
				fmt.Println(node["id"])
				return nil
			case "load":
				if len(args) != 2 {
					return fmt.Errorf("usage: ledger load <name>")
				}
				var ledger map[string]any
				if err := c.CallTool("ledger_load", map[string]any{"name": args[1]}, &ledger); err != nil {
					return err
				}
				fmt.Println(ledger["summary"])
				return nil
			case "list":
				var ledgers []map[string]any
				if err := c.CallTool("ledger_list", nil, &ledgers); err != nil {
					return err
				}
				for _, l := range ledgers {
					fmt.Printf("%s\t%s\n", l["name"], oneLine(l["summary"]))
				}
				return nil
			default:
				return fmt.Errorf("unknown ledger action %q", args[0])
			}
		},
	}
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <id> <kind>",
		Short: "Record a usage feedback event (used|helpful|misleading|confirmed|challenged)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			magnitude, _ := cmd.Flags().GetFloat64("magnitude")
			return c.CallTool("feedback", map[string]any{
				"id": args[0], "kind": args[1], "magnitude": magnitude,
			}, nil)
		},
	}
	cmd.Flags().Float64("magnitude", 0, "override the kind's default magnitude")
	return cmd
}
