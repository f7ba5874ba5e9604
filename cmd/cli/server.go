package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/config"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-sdk/api"
	"github.com/icon-project/abi-sdk/contract"
	"github.com/icon-project/abi-sdk/contract/eth"
	"github.com/icon-project/abi-sdk/database"
	"github.com/icon-project/abi-sdk/registry"
)

type Config struct {
	config.FileConfig `json:",squash"`

	Server    ServerConfig             `json:"server"`
	Database  *database.Config         `json:"database,omitempty"`
	Networks  map[string]NetworkConfig `json:"networks"`
	Contracts []ContractConfig         `json:"contracts,omitempty"`

	LogLevel     string            `json:"log_level"`
	ConsoleLevel string            `json:"console_level"`
	LogWriter    *log.WriterConfig `json:"log_writer,omitempty"`
}

type ServerConfig struct {
	Address      string `json:"address"`
	DumpLogLevel string `json:"dump_log_level,omitempty"`
}

type NetworkConfig struct {
	NetworkType string           `json:"type"`
	Endpoint    string           `json:"endpoint"`
	Options     contract.Options `json:"options,omitempty"`
}

// ContractConfig registers a contract service on start, ABI is the path
// of the ABI JSON file.
type ContractConfig struct {
	Name    string           `json:"name,omitempty"`
	Network string           `json:"network"`
	Address contract.Address `json:"address"`
	ABI     string           `json:"abi"`
}

func ReadConfig(filePath string, cfg *Config, vc *viper.Viper) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("fail to open config file=%s err=%+v", filePath, err)
	}
	defer f.Close()
	vc.SetConfigType("json")
	err = vc.ReadConfig(f)
	if err != nil {
		return fmt.Errorf("fail to read config file=%s err=%+v", filePath, err)
	}
	if err = vc.Unmarshal(cfg, cli.ViperDecodeOptJson); err != nil {
		return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
	}
	cfg.FilePath, _ = filepath.Abs(filePath)
	return nil
}

func exampleConfig(cfg *Config) {
	if cfg.Database == nil {
		cfg.Database = &database.Config{
			Driver: database.DriverSQLite,
			DBName: "abi-sdk.db",
		}
	}
	if len(cfg.Networks) == 0 {
		cfg.Networks = map[string]NetworkConfig{
			eth.NetworkTypeEth + "Network": {
				NetworkType: eth.NetworkTypeEth,
				Endpoint:    "http://localhost:8545",
				Options: contract.MustEncodeOptions(eth.AdaptorOption{
					TransportLogLevel: contract.LogLevel(log.TraceLevel),
				}),
			},
			eth.NetworkTypeBSC + "Network": {
				NetworkType: eth.NetworkTypeBSC,
				Endpoint:    "http://localhost:8575",
			},
		}
	}
	if len(cfg.Contracts) == 0 {
		cfg.Contracts = []ContractConfig{
			{
				Name:    "token",
				Network: eth.NetworkTypeEth + "Network",
				Address: "0x0000000000000000000000000000000000000000",
				ABI:     "/path/to/abi.json",
			},
		}
	}
}

// openRegistry returns nil without database configuration.
func openRegistry(cfg *Config, l log.Logger) (*registry.Registry, error) {
	if cfg.Database == nil {
		return nil, nil
	}
	dbCfg := *cfg.Database
	if dbCfg.Driver == database.DriverSQLite && dbCfg.DBName != ":memory:" {
		dbCfg.DBName = cfg.ResolveAbsolute(dbCfg.DBName)
	}
	db, err := database.OpenDatabase(dbCfg, l)
	if err != nil {
		return nil, err
	}
	return registry.New(db, l)
}

func NewServerCommand(parentCmd *cobra.Command, parentVc *viper.Viper, version, build string, logoLines []string) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "server", "Server management")
	cfg := &Config{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgFilePath := rootVc.GetString("config"); cfgFilePath != "" {
			if err := ReadConfig(cfgFilePath, cfg, rootVc); err != nil {
				return err
			}
		}
		if err := rootVc.Unmarshal(&cfg, cli.ViperDecodeOptJson); err != nil {
			return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
		}
		return nil
	}
	rootPFlags := rootCmd.PersistentFlags()
	rootPFlags.StringP("config", "c", "", "Parsing configuration file")
	rootPFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("log_writer.filename", "abi-sdk.log", "Log file name (rotated files resides in same directory)")
	rootPFlags.Int("log_writer.maxsize", 100, "Maximum log file size in MiB")
	rootPFlags.Int("log_writer.maxage", 0, "Maximum age of log file in day")
	rootPFlags.Int("log_writer.maxbackups", 0, "Maximum number of backups")
	rootPFlags.Bool("log_writer.localtime", false, "Use localtime on rotated log file instead of UTC")
	rootPFlags.Bool("log_writer.compress", false, "Use gzip on rotated log file")
	//ServerConfig
	rootPFlags.String("server.address", "localhost:8080", "server address")
	rootPFlags.String("server.dump_log_level", "trace", "server dump log level (trace,debug,info)")
	cli.BindPFlags(rootVc, rootPFlags)

	saveCmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save configuration",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			saveFilePath := args[0]
			cfg.FilePath, _ = filepath.Abs(saveFilePath)
			cfg.BaseDir = cfg.ResolveRelative(cfg.BaseDir)

			if cfg.LogWriter != nil {
				cfg.LogWriter.Filename = cfg.ResolveRelative(cfg.LogWriter.Filename)
			}

			if example, err := cmd.Flags().GetBool("example"); err != nil {
				return err
			} else if example {
				exampleConfig(cfg)
			}

			if err := cli.JsonPrettySaveFile(saveFilePath, 0644, cfg); err != nil {
				return err
			}
			cmd.Println("Save configuration to", saveFilePath)
			return nil
		},
	}
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().Bool("example", false, "example")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range logoLines {
				log.Println(l)
			}
			log.Printf("Version : %s", version)
			log.Printf("Build   : %s", build)

			l := log.GlobalLogger()
			if cfg.LogWriter != nil {
				var lwCfg log.WriterConfig
				lwCfg = *cfg.LogWriter
				lwCfg.Filename = cfg.ResolveAbsolute(lwCfg.Filename)
				writer, err := log.NewWriter(&lwCfg)
				if err != nil {
					log.Panicf("Fail to make writer err=%+v", err)
				}
				err = l.SetFileWriter(writer)
				if err != nil {
					log.Panicf("Fail to set file logger err=%+v", err)
				}
			}

			if lv, err := log.ParseLevel(cfg.LogLevel); err != nil {
				log.Panicf("Invalid log_level=%s", cfg.LogLevel)
			} else {
				l.SetLevel(lv)
			}
			if lv, err := log.ParseLevel(cfg.ConsoleLevel); err != nil {
				log.Panicf("Invalid console_level=%s", cfg.ConsoleLevel)
			} else {
				l.SetConsoleLevel(lv)
			}
			modLevels, _ := cmd.Flags().GetStringToString("mod_level")
			for mod, lvStr := range modLevels {
				if lv, err := log.ParseLevel(lvStr); err != nil {
					log.Panicf("Invalid mod_level mod=%s level=%s", mod, lvStr)
				} else {
					l.SetModuleLevel(mod, lv)
				}
			}
			serverDumpLogLevel, err := log.ParseLevel(cfg.Server.DumpLogLevel)
			if err != nil {
				return err
			} else {
				serverDumpLogLevel = contract.EnsureTransportLogLevel(serverDumpLogLevel)
			}
			reg, err := openRegistry(cfg, l)
			if err != nil {
				return err
			}
			s := api.NewServer(cfg.Server.Address, reg, serverDumpLogLevel, l)
			for network, n := range cfg.Networks {
				a, err := contract.NewAdaptor(n.NetworkType, n.Endpoint, n.Options, l)
				if err != nil {
					return err
				}
				s.AddAdaptor(network, a)
			}
			for _, cc := range cfg.Contracts {
				a := s.GetAdaptor(cc.Network)
				if a == nil {
					return errors.NotFoundError.Errorf("not found network:%s for contract:%s", cc.Network, cc.Address)
				}
				abiJSON, err := os.ReadFile(cfg.ResolveAbsolute(cc.ABI))
				if err != nil {
					return errors.Wrapf(err, "fail to read abi file:%s err:%s", cc.ABI, err.Error())
				}
				svc, err := api.NewContractService(a, abiJSON, cc.Address, cc.Network, cc.Name, l)
				if err != nil {
					return err
				}
				if err = s.AddService(svc); err != nil {
					return err
				}
			}
			return s.Start()
		},
	}
	rootCmd.AddCommand(startCmd)
	startFlags := startCmd.Flags()
	startFlags.StringToString("mod_level", nil, "Set console log level for specific module ('mod'='level',...)")
	startFlags.MarkHidden("mod_level")
	return rootCmd, rootVc
}
