package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stakewise/relayer-example/pkg/blsSigner/awsSMBLSSigner"
	"github.com/stakewise/relayer-example/pkg/chainManager"
	"github.com/stakewise/relayer-example/pkg/contracts"
	"github.com/stakewise/relayer-example/pkg/credentialSource"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
	"github.com/stakewise/relayer-example/pkg/ecdsaSigner"
	"github.com/stakewise/relayer-example/pkg/logger"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/relayer"
	"github.com/stakewise/relayer-example/pkg/server"
	"github.com/stakewise/relayer-example/pkg/util"
	"github.com/stakewise/relayer-example/pkg/validatorsManager"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "relayer",
		Usage: "StakeWise vault validators relayer",
		Description: `The relayer creates validator credentials for StakeWise vaults, signs their
deposits and voluntary exits and authorizes validator registration, funding,
withdrawals and consolidations with the vault's validators manager key.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "network",
				Aliases:  []string{"n"},
				Usage:    fmt.Sprintf("Network to serve (one of %s)", strings.Join(networkConfig.Names(), ", ")),
				Required: true,
				EnvVars:  []string{"NETWORK"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level; DEBUG enables debug logging",
				Value:   "INFO",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (json or plain)",
				Value:   logger.FormatJSON,
				EnvVars: []string{"LOG_FORMAT"},
			},
			// Validator keystores
			&cli.StringFlag{
				Name:    "keystores-dir",
				Usage:   "Directory of EIP-2335 keystore*.json files; selects keystore-backed credentials",
				EnvVars: []string{"KEYSTORES_DIR"},
			},
			&cli.StringFlag{
				Name:    "keystores-password-file",
				Usage:   "File holding the password of every validator keystore",
				EnvVars: []string{"KEYSTORES_PASSWORD_FILE"},
			},
			&cli.StringSliceFlag{
				Name:    "keystores-aws-secret-names",
				Usage:   "AWS Secrets Manager secrets holding one EIP-2335 keystore each",
				EnvVars: []string{"KEYSTORES_AWS_SECRET_NAMES"},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region for KMS and Secrets Manager",
				Value:   "us-east-1",
				EnvVars: []string{"AWS_REGION"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Serve the relayer HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "host",
						Usage:   "Address to listen on",
						Value:   "127.0.0.1",
						EnvVars: []string{"RELAYER_HOST"},
					},
					&cli.IntFlag{
						Name:    "port",
						Usage:   "Port to listen on",
						Value:   8000,
						EnvVars: []string{"RELAYER_PORT"},
					},
					&cli.StringFlag{
						Name:     "execution-endpoint",
						Usage:    "Execution client JSON-RPC endpoint",
						Required: true,
						EnvVars:  []string{"EXECUTION_ENDPOINT"},
					},
					&cli.DurationFlag{
						Name:    "execution-timeout",
						Usage:   "Timeout of execution client calls",
						Value:   60 * time.Second,
						EnvVars: []string{"EXECUTION_TIMEOUT"},
					},
					&cli.StringSliceFlag{
						Name:    "cors-allowed-origins",
						Usage:   "Origins allowed to call the API from a browser; any origin when unset",
						EnvVars: []string{"CORS_ALLOWED_ORIGINS"},
					},
					&cli.IntFlag{
						Name:    "max-validators-per-request",
						Usage:   "Largest batch accepted by a single request",
						Value:   server.DefaultMaxValidatorsPerRequest,
						EnvVars: []string{"MAX_VALIDATORS_PER_REQUEST"},
					},
					// Validators manager key
					&cli.StringFlag{
						Name:    "validators-manager-key-file",
						Usage:   "Encrypted V3 keystore of the validators manager",
						EnvVars: []string{"VALIDATORS_MANAGER_KEY_FILE"},
					},
					&cli.StringFlag{
						Name:    "validators-manager-password-file",
						Usage:   "Password file of the validators manager keystore",
						EnvVars: []string{"VALIDATORS_MANAGER_PASSWORD_FILE"},
					},
					&cli.StringFlag{
						Name:    "validators-manager-private-key",
						Usage:   "Validators manager private key (hex format, with or without 0x prefix)",
						EnvVars: []string{"VALIDATORS_MANAGER_PRIVATE_KEY"},
					},
					&cli.StringFlag{
						Name:    "validators-manager-aws-kms-key-id",
						Usage:   "AWS KMS key ID of the validators manager",
						EnvVars: []string{"VALIDATORS_MANAGER_AWS_KMS_KEY_ID"},
					},
				},
				Before: validateFlags,
				Action: startAction,
			},
			{
				Name:  "deposit-data",
				Usage: "Create validators and write their deposit data file",
				Description: `Without --keystores-dir or --keystores-aws-secret-names fresh keys are
derived and encrypted with --keystores-password-file into keystore files next to
the deposit data, so the validators can be operated and exited later.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "vault",
						Usage:    "Vault address the withdrawal credentials point to",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of validators",
						Value: 1,
					},
					&cli.Uint64Flag{
						Name:  "amount",
						Usage: "Deposit amount of each validator in gwei",
						Value: networkConfig.MinFullDepositGwei,
					},
					&cli.StringFlag{
						Name:  "validator-type",
						Usage: "Validator type (0x01 or 0x02)",
						Value: string(credentials.V2),
					},
					&cli.Uint64Flag{
						Name:  "start-index",
						Usage: "Index of the first validator",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Deposit data file to write",
						Value:   "deposit_data.json",
						EnvVars: []string{"DEPOSIT_DATA_PATH"},
					},
					&cli.StringFlag{
						Name:  "keystores-output-dir",
						Usage: "Directory the keystores of newly created keys are written to; defaults to the directory of --output",
					},
				},
				Action: depositDataAction,
			},
			{
				Name:  "verify-deposit-data",
				Usage: "Verify the signatures and roots of a deposit data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Deposit data file to verify",
						Required: true,
						EnvVars:  []string{"DEPOSIT_DATA_PATH"},
					},
				},
				Action: verifyDepositDataAction,
			},
			{
				Name:   "info",
				Usage:  "Print the parameters of the selected network",
				Action: infoAction,
			},
		},
		Before: validateGlobalFlags,
	}
}

func validateGlobalFlags(c *cli.Context) error {
	if _, err := networkConfig.Get(c.String("network")); err != nil {
		return err
	}
	if c.String("keystores-dir") != "" && len(c.StringSlice("keystores-aws-secret-names")) > 0 {
		return fmt.Errorf("cannot specify both --keystores-dir and --keystores-aws-secret-names")
	}
	if (c.String("keystores-dir") != "" || len(c.StringSlice("keystores-aws-secret-names")) > 0) && c.String("keystores-password-file") == "" {
		return fmt.Errorf("--keystores-password-file is required with validator keystores")
	}
	return nil
}

func validateFlags(c *cli.Context) error {
	return validateManagerKeyFlags(
		c.String("validators-manager-key-file"),
		c.String("validators-manager-password-file"),
		c.String("validators-manager-private-key"),
		c.String("validators-manager-aws-kms-key-id"),
	)
}

// validateManagerKeyFlags requires exactly one validators manager key source.
func validateManagerKeyFlags(keyFile, passwordFile, privateKey, kmsKeyID string) error {
	options := 0
	for _, o := range []string{keyFile, privateKey, kmsKeyID} {
		if o != "" {
			options++
		}
	}
	if options == 0 {
		return fmt.Errorf("must specify one of: --validators-manager-key-file, --validators-manager-private-key, or --validators-manager-aws-kms-key-id")
	}
	if options > 1 {
		return fmt.Errorf("can only specify one validators manager key option")
	}
	if keyFile != "" && passwordFile == "" {
		return fmt.Errorf("--validators-manager-password-file is required with --validators-manager-key-file")
	}
	return nil
}

func setupLogger(c *cli.Context) (*zap.Logger, error) {
	return logger.NewLogger(&logger.LoggerConfig{
		Debug:  strings.EqualFold(c.String("log-level"), "debug"),
		Format: c.String("log-format"),
	})
}

func setupManagerSigner(c *cli.Context, l *zap.Logger) (ecdsaSigner.IHashSigner, error) {
	if keyFile := c.String("validators-manager-key-file"); keyFile != "" {
		return ecdsaSigner.NewKeystoreSigner(keyFile, c.String("validators-manager-password-file"))
	}
	if privateKey := c.String("validators-manager-private-key"); privateKey != "" {
		return ecdsaSigner.NewPrivateKeySigner(privateKey)
	}
	if kmsKeyID := c.String("validators-manager-aws-kms-key-id"); kmsKeyID != "" {
		return ecdsaSigner.NewAWSKMSSigner(kmsKeyID, c.String("aws-region"), l)
	}
	return nil, fmt.Errorf("no validators manager key configured")
}

func setupCredentialSource(c *cli.Context, network *networkConfig.NetworkConfig, l *zap.Logger) (credentialSource.ICredentialSource, error) {
	if dir := c.String("keystores-dir"); dir != "" {
		keys, err := credentialSource.LoadKeystoreDir(dir, c.String("keystores-password-file"), l)
		if err != nil {
			return nil, err
		}
		return credentialSource.NewKeystoreSource(network, keys, l)
	}

	if secretNames := c.StringSlice("keystores-aws-secret-names"); len(secretNames) > 0 {
		password, err := util.ReadTrimmedFile(c.String("keystores-password-file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read keystores password file: %w", err)
		}
		loader, err := awsSMBLSSigner.NewAWSSMKeystoreLoader(&awsSMBLSSigner.AWSSMBLSSignerConfig{
			Region:      c.String("aws-region"),
			SecretNames: secretNames,
			Password:    password,
		}, l)
		if err != nil {
			return nil, err
		}
		signers, err := loader.Load()
		if err != nil {
			return nil, err
		}
		return credentialSource.NewKeystoreSource(network, credentialSource.KeysFromSigners(signers), l)
	}

	return credentialSource.NewEphemeralSource(network, l), nil
}

func startAction(c *cli.Context) error {
	l, err := setupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	network, err := networkConfig.Get(c.String("network"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := chainManager.Connect(ctx, &chainManager.ChainConfig{
		ChainID: network.ChainID,
		RPCUrl:  c.String("execution-endpoint"),
		Timeout: c.Duration("execution-timeout"),
	}, l)
	if err != nil {
		return fmt.Errorf("failed to setup chain: %w", err)
	}

	reader, err := contracts.NewReader(&contracts.Config{
		ValidatorsRegistryAddress: network.ValidatorsRegistryContractAddress,
		Timeout:                   c.Duration("execution-timeout"),
	}, chain.RPCClient, l)
	if err != nil {
		return fmt.Errorf("failed to setup contracts reader: %w", err)
	}

	source, err := setupCredentialSource(c, network, l)
	if err != nil {
		return fmt.Errorf("failed to setup credential source: %w", err)
	}

	managerSigner, err := setupManagerSigner(c, l)
	if err != nil {
		return fmt.Errorf("failed to setup validators manager key: %w", err)
	}
	managerAddress, err := managerSigner.GetAddress()
	if err != nil {
		return fmt.Errorf("failed to get validators manager address: %w", err)
	}

	r, err := relayer.NewRelayer(network, source, validatorsManager.NewAuthorizer(chain.ChainID(), managerSigner, l), reader, l)
	if err != nil {
		return fmt.Errorf("failed to setup relayer: %w", err)
	}

	l.Sugar().Infow("Relayer configured",
		zap.String("network", network.Name),
		zap.String("validatorsManager", managerAddress.Hex()),
		zap.String("credentialSource", string(source.Kind())),
		zap.Int("keystores", len(source.AvailablePublicKeys())),
	)

	srv := server.NewServer(&server.Config{
		Host:                    c.String("host"),
		Port:                    c.Int("port"),
		Network:                 network.Name,
		MaxValidatorsPerRequest: c.Int("max-validators-per-request"),
		AllowedOrigins:          c.StringSlice("cors-allowed-origins"),
	}, r, l)
	return srv.Start(ctx)
}

func depositDataAction(c *cli.Context) error {
	l, err := setupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	network, err := networkConfig.Get(c.String("network"))
	if err != nil {
		return err
	}
	if !common.IsHexAddress(c.String("vault")) {
		return fmt.Errorf("invalid vault address %q", c.String("vault"))
	}
	vault := common.HexToAddress(c.String("vault"))
	validatorType, err := credentials.ParseValidatorType(c.String("validator-type"))
	if err != nil {
		return err
	}
	amount := c.Uint64("amount")
	if validatorType == credentials.V1 && amount != networkConfig.MinFullDepositGwei {
		return fmt.Errorf("V1 validators take a full deposit of %d gwei", networkConfig.MinFullDepositGwei)
	}

	source, err := setupCredentialSource(c, network, l)
	if err != nil {
		return fmt.Errorf("failed to setup credential source: %w", err)
	}
	var keystoresPassword string
	if source.Kind() == credentialSource.KindEphemeral {
		if c.String("keystores-password-file") == "" {
			return fmt.Errorf("--keystores-password-file is required to write the keystores of new validators")
		}
		keystoresPassword, err = util.ReadTrimmedFile(c.String("keystores-password-file"))
		if err != nil {
			return fmt.Errorf("failed to read keystores password file: %w", err)
		}
	}
	builder, err := depositData.NewBuilder(network, l)
	if err != nil {
		return err
	}

	creds, err := source.GenerateCredentials(c.Uint64("start-index"), c.Int("count"), vault, validatorType)
	if err != nil {
		return fmt.Errorf("failed to create credentials: %w", err)
	}
	data, err := util.MapErr(creds, func(cred *credentials.Credential, _ uint64) (*depositData.DepositDatum, error) {
		_, datum, err := builder.Build(cred, amount)
		return datum, err
	})
	if err != nil {
		return fmt.Errorf("failed to build deposit data: %w", err)
	}

	output := c.String("output")
	if source.Kind() == credentialSource.KindEphemeral {
		keystoresDir := c.String("keystores-output-dir")
		if keystoresDir == "" {
			keystoresDir = filepath.Dir(output)
		}
		if _, err := credentialSource.WriteKeystoreDir(keystoresDir, creds, keystoresPassword, l); err != nil {
			return fmt.Errorf("failed to write keystores: %w", err)
		}
	}
	if err := depositData.WriteDepositDataFile(output, data); err != nil {
		return err
	}
	l.Sugar().Infow("Wrote deposit data",
		zap.String("path", output),
		zap.Int("count", len(data)),
		zap.String("vault", vault.Hex()),
		zap.String("network", network.Name),
	)
	return nil
}

func verifyDepositDataAction(c *cli.Context) error {
	l, err := setupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	network, err := networkConfig.Get(c.String("network"))
	if err != nil {
		return err
	}
	builder, err := depositData.NewBuilder(network, l)
	if err != nil {
		return err
	}
	data, err := depositData.ReadDepositDataFile(c.String("input"))
	if err != nil {
		return err
	}
	for i, datum := range data {
		if err := builder.Verify(datum); err != nil {
			return fmt.Errorf("deposit %d (%s): %w", i, hexutil.Encode(datum.Pubkey[:]), err)
		}
	}
	fmt.Printf("Verified %d deposits for %s\n", len(data), network.Name)
	return nil
}

func infoAction(c *cli.Context) error {
	network, err := networkConfig.Get(c.String("network"))
	if err != nil {
		return err
	}
	fmt.Printf("Network: %s\n", network.Name)
	fmt.Printf("Chain ID: %d\n", network.ChainID)
	fmt.Printf("Genesis Fork Version: 0x%s\n", network.GenesisForkVersionHex())
	fmt.Printf("Genesis Validators Root: %s\n", hexutil.Encode(network.GenesisValidatorsRoot[:]))
	fmt.Printf("Exit Fork Version: %s (epoch %d)\n", hexutil.Encode(network.ExitFork.Version[:]), network.ExitFork.Epoch)
	fmt.Printf("Validators Registry: %s\n", network.ValidatorsRegistryContractAddress.Hex())
	return nil
}
