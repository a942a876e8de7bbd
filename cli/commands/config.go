package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/venice-ai/venice-go/core"
)

var configYAML bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved SDK configuration",
	Long: `Resolve configuration the way the SDK does (explicit values,
environment, local dotenv, gated global dotenv) and print the result.
The API key is always masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configYAML, "yaml", false, "print as YAML")
	rootCmd.AddCommand(configCmd)
}

// configDisplay is the printable projection of a resolved Config.
type configDisplay struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Timeout            string `yaml:"timeout"`
	MaxRetries         int    `yaml:"max_retries"`
	RetryBackoffFactor string `yaml:"retry_backoff_factor"`
	RetryStatusCodes   []int  `yaml:"retry_status_codes"`
	PoolConnections    int    `yaml:"pool_connections"`
	PoolMaxSize        int    `yaml:"pool_maxsize"`
	UseGlobalConfig    bool   `yaml:"use_global_config"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfig()
	if err != nil {
		return exitWith(ExitMissingCredential, "cannot resolve configuration: %v", err)
	}

	codes := make([]int, 0, len(cfg.RetryStatusCodes))
	for code := range cfg.RetryStatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	display := configDisplay{
		APIKey:             cfg.APIKey.Masked(),
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout.String(),
		MaxRetries:         cfg.MaxRetries,
		RetryBackoffFactor: cfg.RetryBackoffFactor.String(),
		RetryStatusCodes:   codes,
		PoolConnections:    cfg.PoolConnections,
		PoolMaxSize:        cfg.PoolMaxSize,
		UseGlobalConfig:    cfg.UseGlobalConfig,
	}

	if configYAML {
		out, err := yaml.Marshal(display)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "api_key:              %s\n", display.APIKey)
	fmt.Fprintf(w, "base_url:             %s\n", display.BaseURL)
	fmt.Fprintf(w, "timeout:              %s\n", display.Timeout)
	fmt.Fprintf(w, "max_retries:          %d\n", display.MaxRetries)
	fmt.Fprintf(w, "retry_backoff_factor: %s\n", display.RetryBackoffFactor)
	fmt.Fprintf(w, "retry_status_codes:   %s\n", intsToString(codes))
	fmt.Fprintf(w, "pool_connections:     %d\n", display.PoolConnections)
	fmt.Fprintf(w, "pool_maxsize:         %d\n", display.PoolMaxSize)
	fmt.Fprintf(w, "use_global_config:    %v\n", display.UseGlobalConfig)
	return nil
}

func intsToString(ns []int) string {
	s := ""
	for i, n := range ns {
		if i > 0 {
			s += ", "
		}
		s += strconv.Itoa(n)
	}
	return s
}
