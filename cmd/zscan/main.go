// zscan - Shielded wallet scanner over a cached compact block chain
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/artemii235/librustzcash"
	"github.com/artemii235/librustzcash/pkg/common"
	"github.com/artemii235/librustzcash/sapling"
	"github.com/artemii235/librustzcash/scanner"
	"github.com/artemii235/librustzcash/walletdb"
)

const version = "0.1.0"

// Config holds scanner configuration
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Protocol
	Network string

	// Logging
	LogLevel string
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("zscan v%s\n", version)

	case "help":
		printUsage()

	case "init":
		err = cmdInit(args)

	case "new-key":
		err = cmdNewKey(args)

	case "import-key":
		err = cmdImportKey(args)

	case "address":
		err = cmdAddress(args)

	case "scan":
		err = cmdScan(args)

	case "balance":
		err = cmdBalance(args)

	case "status":
		err = cmdStatus(args)

	case "rewind":
		err = cmdRewind(args)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("zscan - Shielded wallet scanner")
	fmt.Println()
	fmt.Println("Usage: zscan <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version     Show version information")
	fmt.Println("  help        Show this help message")
	fmt.Println("  init        Create the wallet database schema")
	fmt.Println("  new-key     Generate a spending key with its viewing key and address")
	fmt.Println("  import-key  Track an account by its full viewing key (-account, -fvk, -address)")
	fmt.Println("  address     Show an account's payment address (-account)")
	fmt.Println("  scan        Scan cached compact blocks for the tracked accounts")
	fmt.Println("  balance     Show an account's total and anchored balance (-account)")
	fmt.Println("  status      Show scanned and cached chain heights")
	fmt.Println("  rewind      Roll the wallet back to a height (-height)")
	fmt.Println()
	fmt.Println("Database flags (eg. -db-host) default from ZSCAN_DB_* environment variables.")
}

// registerFlags attaches the shared flags to a command's flag set
func registerFlags(fs *flag.FlagSet) *Config {
	cfg := &Config{}

	fs.StringVar(&cfg.DBHost, "db-host", envOr("ZSCAN_DB_HOST", "localhost"), "PostgreSQL host")
	fs.IntVar(&cfg.DBPort, "db-port", envOrInt("ZSCAN_DB_PORT", 5432), "PostgreSQL port")
	fs.StringVar(&cfg.DBUser, "db-user", envOr("ZSCAN_DB_USER", "zscan"), "PostgreSQL user")
	fs.StringVar(&cfg.DBPassword, "db-password", envOr("ZSCAN_DB_PASSWORD", ""), "PostgreSQL password")
	fs.StringVar(&cfg.DBName, "db-name", envOr("ZSCAN_DB_NAME", "zscan"), "PostgreSQL database name")

	fs.StringVar(&cfg.Network, "network", envOr("ZSCAN_NETWORK", "main"), "Network parameters (main, test)")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("ZSCAN_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func (cfg *Config) params() (sapling.Params, error) {
	switch cfg.Network {
	case "main":
		return sapling.MainNetwork(), nil
	case "test":
		return sapling.TestNetwork(), nil
	default:
		return sapling.Params{}, fmt.Errorf("unknown network %q", cfg.Network)
	}
}

// openDB applies the logging configuration and connects the wallet store
func openDB(ctx context.Context, cfg *Config) (*walletdb.DB, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	librustzcash.Logger.SetLevel(level)

	params, err := cfg.params()
	if err != nil {
		return nil, err
	}

	return walletdb.New(ctx, &walletdb.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  "disable",
		MaxConns: 10,
	}, params)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfg := registerFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Println("Wallet schema ready.")
	return nil
}

func cmdNewKey(args []string) error {
	fs := flag.NewFlagSet("new-key", flag.ExitOnError)
	fs.Parse(args)

	sk, err := sapling.NewSpendingKey()
	if err != nil {
		return err
	}
	expsk, err := sk.Expand()
	if err != nil {
		return err
	}
	fvk, err := expsk.FullViewingKey()
	if err != nil {
		return err
	}
	_, addr, err := sk.DefaultAddress()
	if err != nil {
		return err
	}

	fvkBytes := fvk.Bytes()
	addrBytes := addr.Bytes()
	fvkHex := common.BytesToHex(fvkBytes[:])
	addrHex := common.BytesToHex(addrBytes[:])
	fmt.Printf("Spending key:     %x\n", sk[:])
	fmt.Printf("Full viewing key: %s\n", fvkHex)
	fmt.Printf("Address:          %s\n", addrHex)
	fmt.Println()
	fmt.Println("Keep the spending key offline. Import the viewing key and address with:")
	fmt.Printf("  zscan import-key -account <n> -fvk %s -address %s\n", fvkHex, addrHex)
	return nil
}

func cmdImportKey(args []string) error {
	fs := flag.NewFlagSet("import-key", flag.ExitOnError)
	cfg := registerFlags(fs)
	account := fs.Uint("account", 0, "Account number")
	fvkHex := fs.String("fvk", "", "Full viewing key (hex)")
	addrHex := fs.String("address", "", "Payment address (hex)")
	fs.Parse(args)

	if *fvkHex == "" || *addrHex == "" {
		return fmt.Errorf("-fvk and -address are required")
	}
	fvkBytes, err := common.HexToBytes(*fvkHex)
	if err != nil {
		return fmt.Errorf("invalid -fvk: %v", err)
	}
	fvk, err := sapling.FullViewingKeyFromBytes(fvkBytes)
	if err != nil {
		return fmt.Errorf("invalid -fvk: %v", err)
	}
	addrBytes, err := common.HexToBytes(*addrHex)
	if err != nil {
		return fmt.Errorf("invalid -address: %v", err)
	}
	addr, err := sapling.PaymentAddressFromBytes(addrBytes)
	if err != nil {
		return fmt.Errorf("invalid -address: %v", err)
	}

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ImportAccount(ctx, scanner.AccountID(*account), fvk, addr); err != nil {
		return err
	}
	fmt.Printf("Account %d imported.\n", *account)
	return nil
}

func cmdAddress(args []string) error {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	cfg := registerFlags(fs)
	account := fs.Uint("account", 0, "Account number")
	fs.Parse(args)

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	addr, err := db.GetAddress(ctx, scanner.AccountID(*account))
	if err != nil {
		return err
	}
	addrBytes := addr.Bytes()
	fmt.Printf("Account %d address: %x\n", *account, addrBytes[:])
	return nil
}

func cmdScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	cfg := registerFlags(fs)
	batch := fs.Int("batch", scanner.DefaultBatchSize, "Blocks fetched per round")
	fs.Parse(args)

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s := scanner.New(db, db)
	s.SetBatchSize(*batch)

	n, err := s.ScanCachedBlocks(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Scanned %d block(s).\n", n)
	if _, max, ok, err := db.BlockHeightExtrema(ctx); err == nil && ok {
		fmt.Printf("Wallet height: %d\n", max)
	}
	return nil
}

func cmdBalance(args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	cfg := registerFlags(fs)
	account := fs.Uint("account", 0, "Account number")
	fs.Parse(args)

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id := scanner.AccountID(*account)
	balance, err := db.GetBalance(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Account %d balance: %d\n", *account, balance.Int64())

	target, anchor, ok, err := db.TargetAndAnchorHeights(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No blocks scanned yet.")
		return nil
	}
	anchored, err := db.GetBalanceAt(ctx, id, anchor)
	if err != nil {
		return err
	}
	fmt.Printf("Spendable at anchor %d (target %d): %d\n", anchor, target, anchored.Int64())
	return nil
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfg := registerFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	min, max, ok, err := db.BlockHeightExtrema(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("Wallet blocks:   %d - %d\n", min, max)
	} else {
		fmt.Println("Wallet blocks:   none scanned")
	}

	tip, ok, err := db.CacheTip(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("Cache tip:       %d\n", tip)
	} else {
		fmt.Println("Cache tip:       empty")
	}

	keys, err := db.GetScanningKeys(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Tracked accounts: %d\n", len(keys))
	return nil
}

func cmdRewind(args []string) error {
	fs := flag.NewFlagSet("rewind", flag.ExitOnError)
	cfg := registerFlags(fs)
	height := fs.Uint64("height", 0, "Height to roll back to")
	fs.Parse(args)

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RewindToHeight(ctx, *height); err != nil {
		return err
	}
	fmt.Printf("Wallet rewound to height %d.\n", *height)
	return nil
}
