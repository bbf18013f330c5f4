package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/libra-vcs/libra/internal/agent/intent"
	"github.com/libra-vcs/libra/internal/agent/providers/anthropic"
	"github.com/libra-vcs/libra/internal/agent/providers/deepseek"
	"github.com/libra-vcs/libra/internal/agent/providers/gemini"
	"github.com/libra-vcs/libra/internal/agent/providers/openai"
	"github.com/libra-vcs/libra/internal/agent/providers/zhipu"
	"github.com/libra-vcs/libra/internal/agent/session"
	"github.com/libra-vcs/libra/internal/hooks"
	"github.com/libra-vcs/libra/internal/ledger"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/porcelain"
	"github.com/libra-vcs/libra/internal/toolloop"
	"github.com/libra-vcs/libra/internal/vault"
)

var (
	aiVendor string
	aiModel  string
)

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Drive an AI coding agent against this repository",
}

var aiRunCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run a single AI task to completion, persisting it to the history ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runAIRun,
}

func init() {
	aiRunCmd.Flags().StringVar(&aiVendor, "vendor", "anthropic", "Model vendor (anthropic|openai|gemini|deepseek|zhipu)")
	aiRunCmd.Flags().StringVar(&aiModel, "model", "", "Model name (vendor-specific default if empty)")
	aiCmd.AddCommand(aiRunCmd)
}

// resolveAPIKey asks a reachable Vault through ProviderAPIKey, which falls
// back to envVar when Vault has no entry. It returns "" when Vault is
// unreachable or no key is found; buildModel then uses the provider's
// FromEnv.
func resolveAPIKey(ctx context.Context, vendor, envVar string) string {
	vc, err := vault.NewClient(ctx)
	if err != nil || !vc.IsReachable() {
		return ""
	}
	key, err := vc.ProviderAPIKey(vendor, envVar)
	if err != nil {
		return ""
	}
	return key
}

func buildModel(ctx context.Context, vendor, model string) (toolloop.CompletionModel, error) {
	switch vendor {
	case "anthropic":
		if key := resolveAPIKey(ctx, vendor, "ANTHROPIC_API_KEY"); key != "" {
			if model == "" {
				model = "claude-sonnet-4-5"
			}
			return anthropic.New(anthropic.WithAPIKey(key), model), nil
		}
		client, err := anthropic.FromEnv()
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		return anthropic.New(client, model), nil
	case "openai":
		if key := resolveAPIKey(ctx, vendor, "OPENAI_API_KEY"); key != "" {
			if model == "" {
				model = "gpt-4o"
			}
			return openai.New(openai.WithAPIKey(key), model), nil
		}
		client, err := openai.FromEnv()
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = "gpt-4o"
		}
		return openai.New(client, model), nil
	case "gemini":
		if key := resolveAPIKey(ctx, vendor, "GEMINI_API_KEY"); key != "" {
			if model == "" {
				model = "gemini-2.0-flash"
			}
			return gemini.New(gemini.WithAPIKey(key), model), nil
		}
		client, err := gemini.FromEnv()
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = "gemini-2.0-flash"
		}
		return gemini.New(client, model), nil
	case "deepseek":
		if key := resolveAPIKey(ctx, vendor, "DEEPSEEK_API_KEY"); key != "" {
			if model == "" {
				model = "deepseek-chat"
			}
			return deepseek.New(deepseek.WithAPIKey(key), model), nil
		}
		client, err := deepseek.FromEnv()
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = "deepseek-chat"
		}
		return deepseek.New(client, model), nil
	case "zhipu":
		if key := resolveAPIKey(ctx, vendor, "ZHIPU_API_KEY"); key != "" {
			if model == "" {
				model = "glm-4"
			}
			return zhipu.New(zhipu.WithAPIKey(key), model), nil
		}
		client, err := zhipu.FromEnv()
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = "glm-4"
		}
		return zhipu.New(client, model), nil
	default:
		return nil, fmt.Errorf("unknown vendor %q", vendor)
	}
}

func runAIRun(cmd *cobra.Command, args []string) error {
	out := newOutput()
	prompt := args[0]
	ctx := cmd.Context()

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	model, err := buildModel(ctx, aiVendor, aiModel)
	if err != nil {
		return fmt.Errorf("build %s model: %w", aiVendor, err)
	}

	registry := toolloop.NewToolRegistry(repo.WorkDir)
	toolloop.RegisterReadFile(registry)
	toolloop.RegisterListDir(registry)
	toolloop.RegisterGrepFiles(registry)
	toolloop.RegisterApplyPatch(registry)
	toolloop.RegisterUpdatePlan(registry, func(explanation string, plan []toolloop.PlanStep) {
		if !out.IsJSON() {
			out.Info(fmt.Sprintf("plan: %s", explanation))
		}
	})

	engine := toolloop.NewEngine(model, registry, hooks.NewRegistry())

	now := time.Now()
	led := ledger.New(repo.Store, repo.DB, repo.HashKind)

	taskIntent := intent.NewIntent(prompt, "", "", now)
	task := intent.NewTask(taskIntent.ID, prompt, now)
	run := intent.NewRun(task.ID, aiVendor+"/"+aiModel, now)

	if err := appendToLedger(led, repo, ledger.TypeIntent, taskIntent.ID, taskIntent); err != nil {
		return err
	}
	if err := appendToLedger(led, repo, ledger.TypeTask, task.ID, task); err != nil {
		return err
	}
	if err := appendToLedger(led, repo, ledger.TypeRun, run.ID, run); err != nil {
		return err
	}

	sess := session.New(run.ID, repo.WorkDir, now)

	if !out.IsJSON() {
		out.Info(fmt.Sprintf("running task against %s...", aiVendor))
	}
	finalText, history, runErr := engine.Run(ctx, nil, prompt)
	sess.History = history
	sess.Summary = finalText

	finishedAt := time.Now()
	run.FinishedAt = finishedAt
	run.FinalText = finalText
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := appendToLedger(led, repo, ledger.TypeRun, run.ID, run); err != nil {
		return err
	}

	snap, err := sess.Snapshot(finishedAt)
	if err != nil {
		return fmt.Errorf("snapshot session: %w", err)
	}
	if err := appendToLedger(led, repo, ledger.TypeContextSnapshot, snap.ID, snap); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if out.IsJSON() {
		return out.JSON(map[string]string{"run_id": run.ID, "result": finalText})
	}
	out.Success("Run complete")
	fmt.Println(finalText)
	return nil
}

// marshalBlob is the common shape every agent process object implements.
type marshalBlob interface {
	MarshalBlob() ([]byte, error)
}

// appendToLedger writes obj as a content-addressed blob through the object
// store and records it in the history ledger, the same two-step persistence
// every Intent/Task/Run/Plan/PatchSet/Evidence/ToolInvocation/Provenance/
// Decision/ContextSnapshot goes through.
func appendToLedger(led *ledger.Ledger, repo *porcelain.Repository, objectType ledger.ObjectType, objectID string, obj marshalBlob) error {
	payload, err := obj.MarshalBlob()
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", objectType, objectID, err)
	}
	blobID := objstore.Hash(objstore.KindBlob, payload, repo.HashKind)
	if _, err := repo.Store.Put(blobID, payload, objstore.KindBlob); err != nil {
		return fmt.Errorf("write %s %s blob: %w", objectType, objectID, err)
	}
	if _, err := led.Append(objectType, objectID, blobID); err != nil {
		return fmt.Errorf("append %s %s to ledger: %w", objectType, objectID, err)
	}
	return nil
}
