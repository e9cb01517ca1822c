// Command slidectl is an operator CLI for the slide-generation service:
// submit a prompt, poll a job's status, or run the boot provisioning
// reconciliation out-of-band.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/slidegen/config"
	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/provision"
	"github.com/mohammad-safakhou/slidegen/internal/statestore"
)

func main() {
	root := &cobra.Command{Use: "slidectl"}
	root.AddCommand(submitCmd(), statusCmd(), provisionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func submitCmd() *cobra.Command {
	var baseURL, prompt, aspect, imagePath string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a slide-generation prompt and print the assigned job id",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"prompt": prompt, "aspect": aspect}
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				body["imageBase64"] = base64.StdEncoding.EncodeToString(data)
			}
			raw, err := json.Marshal(body)
			if err != nil {
				return err
			}
			resp, err := http.Post(baseURL+"/api/generate", "application/json", bytes.NewReader(raw))
			if err != nil {
				return fmt.Errorf("submit: %w", err)
			}
			defer resp.Body.Close()
			out, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("submit failed (%d): %s", resp.StatusCode, out)
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "addr", getenv("SLIDEGEN_ADDR", "http://localhost:8080"), "base URL of the running server")
	cmd.Flags().StringVar(&prompt, "prompt", "", "the natural-language prompt")
	cmd.Flags().StringVar(&aspect, "aspect", "16:9", `"16:9" or "4:3"`)
	cmd.Flags().StringVar(&imagePath, "image", "", "optional path to a PNG/JPEG reference image")
	return cmd
}

func statusCmd() *cobra.Command {
	var baseURL, jobID string
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch a job's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				resp, err := http.Get(baseURL + "/api/jobs/" + jobID)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				out, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				if err != nil {
					return err
				}
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("status failed (%d): %s", resp.StatusCode, out)
				}
				fmt.Println(string(out))
				var st struct{ Status string `json:"status"` }
				if !watch || json.Unmarshal(out, &st) != nil {
					return nil
				}
				if st.Status == "succeeded" || st.Status == "failed" {
					return nil
				}
				time.Sleep(2 * time.Second)
			}
		},
	}
	cmd.Flags().StringVar(&baseURL, "addr", getenv("SLIDEGEN_ADDR", "http://localhost:8080"), "base URL of the running server")
	cmd.Flags().StringVar(&jobID, "job", "", "job id to query")
	cmd.Flags().BoolVar(&watch, "watch", false, "poll every 2 seconds until the job reaches a terminal state")
	return cmd
}

func provisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run the boot-time agent/vector-store reconciliation once, out-of-band",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := agentclient.New(agentclient.Config{
				ProjectEndpoint:     cfg.FoundryProjectEndpoint,
				APIVersion:          cfg.FoundryAPIVersion,
				ModelDeploymentName: cfg.ModelDeploymentName,
				Timeout:             time.Duration(cfg.FoundryHTTPTimeoutSecs) * time.Second,
			})
			var state statestore.Store
			if cfg.StateStore == "redis" {
				state = statestore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			} else {
				state = statestore.NewLocalStore(cfg.StateLocalPath)
			}
			logger := log.New(os.Stdout, "[PROVISION] ", log.LstdFlags)
			supervisor := provision.New(client, state, cfg.SeedDataDir, cfg.ModelDeploymentName, logger)
			pc := provision.NewContext()
			supervisor.Run(context.Background(), pc)
			fmt.Printf("vectorStoreId=%q fileResearchAvailable=%v\n", pc.VectorStoreID(), pc.FileResearchAvailable())
			return nil
		},
	}
	return cmd
}
