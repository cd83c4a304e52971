package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bl4ck0w1/riskprobe/internal/normalize"
	"github.com/bl4ck0w1/riskprobe/internal/orchestration"
	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/internal/probes/client"
	"github.com/bl4ck0w1/riskprobe/internal/probes/email"
	"github.com/bl4ck0w1/riskprobe/internal/probes/network"
	"github.com/bl4ck0w1/riskprobe/internal/probes/tlscheck"
	"github.com/bl4ck0w1/riskprobe/internal/probes/web"
	"github.com/bl4ck0w1/riskprobe/internal/report"
	"github.com/bl4ck0w1/riskprobe/internal/risk"
	"github.com/bl4ck0w1/riskprobe/internal/storage"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
	"github.com/bl4ck0w1/riskprobe/pkg/utils"
)

func NewScanCommand() *cobra.Command {
	var (
		probeNames    []string
		outputFile    string
		timeout       time.Duration
		userAgent     string
		clientIP      string
		gatewayIP     string
		noStore       bool
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Run every probe against a target and print the scored result",
		Long:  "Scan dispatches the enabled probes against the target domain or IP, normalizes their observations into findings and prints the scored result as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logrus.StandardLogger()

			orchestrator, repository, metrics, err := buildStack(cfg, logger)
			if err != nil {
				return err
			}

			if metricsListen != "" {
				server := &http.Server{Addr: metricsListen, Handler: metrics.Handler()}
				go func() {
					if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Warnf("Metrics listener stopped: %v", err)
					}
				}()
				defer server.Close()
			}

			req := &models.ScanRequest{
				Target:      args[0],
				RequestedAt: time.Now(),
				Deadline:    timeout,
			}
			for _, name := range probeNames {
				req.EnabledProbes = append(req.EnabledProbes, models.ProbeName(name))
			}
			if userAgent != "" || clientIP != "" || gatewayIP != "" {
				req.Client = &models.ClientMetadata{
					UserAgent: userAgent,
					ClientIP:  clientIP,
					GatewayIP: gatewayIP,
				}
			}

			result, err := orchestrator.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}

			if !noStore && repository != nil {
				if err := repository.Store(cmd.Context(), result); err != nil {
					logger.Warnf("Failed to store result: %v", err)
				}
			}

			if err := writeResult(result, outputFile); err != nil {
				return err
			}
			printSummary(result)
			if result.Status == models.StatusFailed {
				return fmt.Errorf("scan %s failed", result.ScanID)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&probeNames, "probes", nil, "probes to run (default all): network_ports, tls, web_security, email_auth, client_env, system_heuristic")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the JSON result to a file instead of stdout")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall scan deadline (default from config)")
	cmd.Flags().StringVar(&userAgent, "client-ua", "", "client user agent for the environment probes")
	cmd.Flags().StringVar(&clientIP, "client-ip", "", "client IP address")
	cmd.Flags().StringVar(&gatewayIP, "gateway-ip", "", "client gateway IP address")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist the result")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while the scan runs (e.g. :9090)")
	return cmd
}

// loadConfig starts from defaults and overlays the config file viper found.
func loadConfig() (*models.Config, error) {
	cfg := models.DefaultConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		if err := cfg.Load(path); err != nil {
			return nil, err
		}
	}
	if dir := viper.GetString("results_directory"); dir != "" {
		cfg.Storage.Directory = dir
	}
	return cfg, cfg.Validate()
}

func buildStack(cfg *models.Config, logger *logrus.Logger) (*orchestration.Orchestrator, *storage.Repository, *utils.MetricsCollector, error) {
	probeSet := []probes.Probe{
		network.NewPortProbe(cfg.Network, logger),
		tlscheck.NewTLSProbe(cfg.TLS, logger),
		web.NewWebProbe(cfg.Web, cfg.Global.UserAgent, logger),
		email.NewAuthProbe(cfg.Email, logger),
		client.NewEnvironmentProbe(logger),
		client.NewHeuristicProbe(logger),
	}

	metrics := utils.NewMetricsCollector(false)
	aggregator := risk.NewAggregator(cfg.Risk)
	builder := report.NewBuilder(aggregator, logger)
	normalizer := normalize.NewNormalizer(logger)
	orchestrator := orchestration.NewOrchestrator(probeSet, cfg.Orchestrator, normalizer, builder, metrics, logger)

	local, err := storage.NewLocalStorage(cfg.Storage.Directory, cfg.Storage.Compress, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}
	repository := storage.NewRepository(local, time.Hour, logger)
	return orchestrator, repository, metrics, nil
}

func writeResult(result *models.ScanResult, outputFile string) error {
	if outputFile == "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	if err := utils.WriteFileJSON(outputFile, result); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	return nil
}

func printSummary(result *models.ScanResult) {
	fmt.Fprintf(os.Stderr, "\nScan %s finished: %s (%s)\n",
		result.ScanID, result.Status, utils.HumanDuration(result.Duration))
	if result.RiskAssessment != nil {
		fmt.Fprintf(os.Stderr, "Overall score: %d (%s)\n",
			result.RiskAssessment.OverallScore, result.RiskAssessment.RiskLevel)
	}
	counts := result.CountBySeverity()
	fmt.Fprintf(os.Stderr, "Findings: %d critical, %d high, %d medium, %d low, %d info\n",
		counts[models.SeverityCritical], counts[models.SeverityHigh],
		counts[models.SeverityMedium], counts[models.SeverityLow], counts[models.SeverityInfo])
	for _, probeErr := range result.ProbeErrors {
		fmt.Fprintf(os.Stderr, "Probe error: %s\n", probeErr.Error())
	}
}
