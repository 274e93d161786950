package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dabbridge/internal/bridge"
	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
	"dabbridge/internal/settings"
)

var (
	bridgeConfigPath string
	bridgeDebugFlag  bool
	bridgeViper      = bridge.NewViper()
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the DAB bridge",
	Long: `Run the bridge daemon. It connects to the MQTT broker, subscribes to the
device's DAB topics and serves requests until interrupted.

Configuration is layered: built-in defaults, the YAML config file, DAB_*
environment variables (for example DAB_BROKER_HOST), then flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(false)
		if bridgeDebugFlag {
			if err := logger.SetLevel("debug"); err != nil {
				return err
			}
			bridgeViper.Set("device.debug", true)
		}

		log := logger.New()

		config, err := bridge.LoadConfig(bridgeViper, bridgeConfigPath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load configuration")
			return err
		}

		log.Info().
			Str("config_path", bridgeConfigPath).
			Str("device", config.Device.Address).
			Str("broker", fmt.Sprintf("%s:%d", config.Broker.Host, config.Broker.Port)).
			Msg("Configuration loaded")

		// Blocks until shutdown
		if err := bridge.NewDaemon(config).Run(); err != nil {
			log.Error().Err(err).Msg("Bridge stopped with error")
			return fmt.Errorf("bridge error: %w", err)
		}

		return nil
	},
}

var bridgeConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bridge configuration",
	Long:  `Generate a configuration file or show the effective device settings.`,
}

var bridgeConfigGenerateCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a configuration file holding every key with its default value.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := bridgeConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		if err := bridge.SaveDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to save default config: %w", err)
		}

		cmd.Printf("Default configuration saved to: %s\n", configPath)
		return nil
	},
}

// effectiveSettings is the report printed by config show
type effectiveSettings struct {
	Device      string                       `yaml:"device"`
	Files       settings.Paths               `yaml:"files"`
	Languages   []string                     `yaml:"languages"`
	AudioVolume settings.VolumeRange         `yaml:"audio_volume"`
	Keymap      map[string]int               `yaml:"keymap"`
	Timeouts    map[string]map[string]string `yaml:"lifecycle_timeouts"`
}

var bridgeConfigShowCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Show effective device settings",
	Long: `Print the keymap, lifecycle timeouts, languages and volume range that
result from merging the built-in defaults with the device override files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := bridgeConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		config, err := bridge.LoadConfig(bridgeViper, configPath)
		if err != nil {
			return err
		}

		// No device calls are made: only file-backed fields are read
		s := settings.New(config.SettingsOptions(), rdk.NewClient(config.Device.Address, false))

		report := effectiveSettings{
			Device:      s.DeviceAddress(),
			Files:       s.Paths(),
			Languages:   s.SupportedLanguages(),
			AudioVolume: s.VolumeRange(),
			Keymap:      s.Keymap(),
			Timeouts:    map[string]map[string]string{},
		}
		for _, app := range settings.LifecycleApps {
			t := s.AppTimeouts(app)
			report.Timeouts[app] = map[string]string{
				"cold_launch":        t.ColdLaunch.String(),
				"resume_launch":      t.ResumeLaunch.String(),
				"exit_to_destroy":    t.ExitToDestroy.String(),
				"exit_to_background": t.ExitToBackground.String(),
			}
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		cmd.Print(string(out))
		return nil
	},
}

func init() {
	flags := bridgeCmd.Flags()
	flags.StringVarP(&bridgeConfigPath, "config", "c", bridge.DefaultConfigFile, "Path to bridge configuration file")
	flags.BoolVarP(&bridgeDebugFlag, "debug", "d", false, "Enable debug logging and vendor request tracing")
	flags.StringP("device", "a", "", "Device control plane address (host:port)")
	flags.String("broker-host", "", "MQTT broker host")
	flags.Int("broker-port", 0, "MQTT broker port")
	flags.String("namespace", "", "DAB topic namespace")
	flags.String("status-listen", "", "Address for the HTTP status endpoint")
	flags.String("watch", "", "Marker file whose removal stops the bridge")

	for key, flag := range map[string]string{
		"device.address":   "device",
		"broker.host":      "broker-host",
		"broker.port":      "broker-port",
		"device.namespace": "namespace",
		"status.listen":    "status-listen",
		"watch.file":       "watch",
	} {
		_ = bridgeViper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add subcommands
	bridgeCmd.AddCommand(bridgeConfigCmd)
	bridgeConfigCmd.AddCommand(bridgeConfigGenerateCmd)
	bridgeConfigCmd.AddCommand(bridgeConfigShowCmd)

	bridgeConfigGenerateCmd.Flags().StringVarP(&bridgeConfigPath, "config", "c", bridge.DefaultConfigFile, "Path for generated configuration file")
	bridgeConfigShowCmd.Flags().StringVarP(&bridgeConfigPath, "config", "c", bridge.DefaultConfigFile, "Path to configuration file")
}
