// vaultctl manages a Klingvault wallet vault from the command line.
//
// Usage:
//
//	vaultctl [global flags] <command> [flags]
//	vaultctl --help
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Klingon-tech/klingvault/config"
	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/vault"
	"golang.org/x/term"
)

const version = "0.1.0"

// app carries what every command needs.
type app struct {
	cfg   *config.Config
	store storage.BlobStore
	ks    *vault.Keystore
	stdin *bufio.Reader
	// tty is true when stdin is a terminal.
	tty bool
}

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Help {
		usage()
		return
	}
	if flags.Version {
		fmt.Printf("vaultctl version %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if flags.Daemon {
		d := newDaemonApp(app{
			cfg:   cfg,
			stdin: bufio.NewReader(os.Stdin),
			tty:   term.IsTerminal(int(os.Stdin.Fd())),
		})
		os.Exit(d.run(flags.Args[0], flags.Args[1:]))
	}

	store, err := cfg.OpenStore()
	if err != nil {
		fatal("open store: %v", err)
	}
	a := &app{
		cfg:   cfg,
		store: store,
		stdin: bufio.NewReader(os.Stdin),
		tty:   term.IsTerminal(int(os.Stdin.Fd())),
		ks: vault.NewKeystore(store, vault.Options{
			VaultID:       cfg.Vault.ID,
			KDF:           cfg.KDFParams(),
			Settings:      ptr(cfg.VaultSettings()),
			MnemonicWords: cfg.Vault.MnemonicWords,
		}),
	}
	klog.CLI.Debug().
		Str("backend", cfg.Vault.Backend).
		Str("datadir", cfg.DataDir).
		Str("vault", cfg.Vault.ID).
		Msg("Store opened")

	code := a.run(flags.Args[0], flags.Args[1:])
	a.ks.Lock()
	if err := store.Close(); err != nil {
		klog.CLI.Error().Err(err).Msg("Close store")
	}
	os.Exit(code)
}

func (a *app) run(cmd string, args []string) int {
	var err error
	switch cmd {
	case "create":
		err = a.cmdCreate(args)
	case "info":
		err = a.cmdInfo()
	case "list":
		err = a.cmdList(args)
	case "account":
		err = a.cmdAccount(args)
	case "sign":
		err = a.cmdSign(args)
	case "verify":
		err = cmdVerify(args)
	case "export":
		err = a.cmdExport(args)
	case "passwd":
		err = a.cmdPasswd()
	case "settings":
		err = a.cmdSettings(args)
	case "destroy":
		err = a.cmdDestroy(args)
	case "vaults":
		err = a.cmdVaults()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: vaultctl [global flags] <command> [flags]

Global flags:
  --datadir <path>      Data directory (default: ~/.klingvault)
  --config, -c <path>   Config file (default: <datadir>/klingvault.conf)
  --network <net>       mainnet (default) or testnet; --testnet for short
  --vault <name>        Vault name inside the store (default: default)
  --backend <b>         file (default), badger or memory
  --autolock <min>      Auto-lock minutes for new vaults (0 disables)
  --words <n>           Recovery phrase length for new vaults: 12 or 24
  --kdf <alg>           pbkdf2-sha256 (default) or argon2id
  --kdf-iterations <n>  KDF iterations
  --log-level <lvl>     debug, info, warn, error or off
  --log-file <path>     Also write JSON logs to a file
  --log-json            Log JSON to stderr
  --daemon              Talk to a running vaultd (--rpc-addr, --rpc-port)
  --version             Show version

Commands:
  create                          Create a vault and show its recovery phrase
  info                            Show vault status and settings
  list [--json]                   List accounts (no password needed)
  vaults                          List vaults in the store

  account create [--name <n>] [--seed <id>] [--path <p>]
                                  Derive a new account
  account import [--name <n>] [--path <p>]
                                  Import a recovery phrase (read from stdin)
  account rename <address> <name> Rename an account
  account delete <address>        Delete an account

  sign --address <a> (--message <m> | --file <f>)
                                  Sign a message; prints the hex signature
  verify --address <a> --signature <hex> (--message <m> | --file <f>)
                                  Check a signature (no vault needed)
  export --address <a>            Show the recovery phrase behind an account
  passwd                          Change the vault password
  settings [--autolock <min>] [--network <net>]
                                  Show or change vault settings
  destroy --yes                   Delete the vault permanently

With --daemon: info, unlock, lock, touch, list, account create, sign and
verify. Other commands need direct access to the store.

Passwords are read from the terminal, or one per line from stdin when
stdin is not a terminal.
`)
}

// ── create ──────────────────────────────────────────────────────────────

func (a *app) cmdCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	fs.Parse(args)

	has, err := a.ks.HasVault()
	if err != nil {
		return err
	}
	if has {
		return vault.ErrAlreadyInitialized
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer zero(password)

	phrase, err := a.ks.CreateVault(password)
	if err != nil {
		return err
	}
	accounts, err := a.ks.GetAccounts()
	if err != nil {
		return err
	}

	fmt.Println("Recovery phrase (write this down, it is shown only once):")
	fmt.Printf("  %s\n\n", phrase)
	fmt.Printf("Vault created: %s\n", a.cfg.Vault.ID)
	fmt.Printf("Address: %s\n", accounts[0].Address)
	return nil
}

// ── info / list / vaults ────────────────────────────────────────────────

func (a *app) cmdInfo() error {
	has, err := a.ks.HasVault()
	if err != nil {
		return err
	}
	fmt.Printf("Vault:     %s\n", a.cfg.Vault.ID)
	fmt.Printf("Backend:   %s\n", a.cfg.Vault.Backend)
	fmt.Printf("Data dir:  %s\n", a.cfg.DataDir)
	if !has {
		fmt.Println("Status:    not created")
		return nil
	}
	s, err := a.ks.Settings()
	if err != nil {
		return err
	}
	accounts, err := a.ks.GetAccounts()
	if err != nil {
		return err
	}
	fmt.Println("Status:    created")
	fmt.Printf("Network:   %s\n", s.DefaultNetwork)
	if s.AutoLockMinutes == 0 {
		fmt.Println("Auto-lock: off")
	} else {
		fmt.Printf("Auto-lock: %d min\n", s.AutoLockMinutes)
	}
	fmt.Printf("Accounts:  %d\n", len(accounts))
	return nil
}

func (a *app) cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Output as JSON")
	fs.Parse(args)

	accounts, err := a.ks.GetAccounts()
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(accounts)
	}
	for _, acct := range accounts {
		path := acct.DerivationPath
		if path == "" {
			path = "m"
		}
		fmt.Printf("%s  %-20s  %-8s  %s\n", acct.Address, acct.Name, shortSeed(acct.SeedID), path)
	}
	return nil
}

func (a *app) cmdVaults() error {
	ids, err := a.store.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// ── account ─────────────────────────────────────────────────────────────

func (a *app) cmdAccount(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: vaultctl account <create|import|rename|delete> [flags]")
	}
	switch args[0] {
	case "create":
		return a.cmdAccountCreate(args[1:])
	case "import":
		return a.cmdAccountImport(args[1:])
	case "rename":
		return a.cmdAccountRename(args[1:])
	case "delete":
		return a.cmdAccountDelete(args[1:])
	default:
		return fmt.Errorf("unknown account command: %s", args[0])
	}
}

func (a *app) cmdAccountCreate(args []string) error {
	fs := flag.NewFlagSet("account create", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	seed := fs.String("seed", "", "Seed ID to derive from (default: master)")
	path := fs.String("path", "", "Derivation path, or m for the seed's master key")
	fs.Parse(args)

	if err := a.unlock(); err != nil {
		return err
	}
	acct, err := a.ks.CreateAccount(vault.AccountOptions{
		Name:           *name,
		DerivationType: vault.DerivationDerive,
		SeedID:         *seed,
		DerivationPath: *path,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account: %s (%s)\n", acct.Address, acct.Name)
	return nil
}

func (a *app) cmdAccountImport(args []string) error {
	fs := flag.NewFlagSet("account import", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	path := fs.String("path", "", "Derivation path, or m for the phrase's master key")
	fs.Parse(args)

	if err := a.unlock(); err != nil {
		return err
	}
	phrase, err := a.readSecret("Recovery phrase: ")
	if err != nil {
		return err
	}
	defer zero(phrase)

	acct, err := a.ks.CreateAccount(vault.AccountOptions{
		Name:           *name,
		DerivationType: vault.DerivationImport,
		Mnemonic:       string(phrase),
		DerivationPath: *path,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account: %s (%s)\n", acct.Address, acct.Name)
	fmt.Printf("Seed:    %s\n", acct.SeedID)
	return nil
}

func (a *app) cmdAccountRename(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: vaultctl account rename <address> <name>")
	}
	if err := a.unlock(); err != nil {
		return err
	}
	return a.ks.RenameAccount(args[0], args[1])
}

func (a *app) cmdAccountDelete(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: vaultctl account delete <address>")
	}
	if err := a.unlock(); err != nil {
		return err
	}
	if err := a.ks.DeleteAccount(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

// ── sign / verify ───────────────────────────────────────────────────────

func (a *app) cmdSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	address := fs.String("address", "", "Signing account address")
	message := fs.String("message", "", "Message text")
	file := fs.String("file", "", "Read the message from a file (- for stdin)")
	fs.Parse(args)

	if *address == "" {
		return errors.New("usage: vaultctl sign --address <a> (--message <m> | --file <f>)")
	}
	msg, err := messageBytes(*message, *file)
	if err != nil {
		return err
	}
	if err := a.unlock(); err != nil {
		return err
	}
	sig, err := a.ks.Sign(*address, msg)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(sig))
	return nil
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	address := fs.String("address", "", "Account address")
	signature := fs.String("signature", "", "Hex signature from sign")
	message := fs.String("message", "", "Message text")
	file := fs.String("file", "", "Read the message from a file (- for stdin)")
	fs.Parse(args)

	if *address == "" || *signature == "" {
		return errors.New("usage: vaultctl verify --address <a> --signature <hex> (--message <m> | --file <f>)")
	}
	msg, err := messageBytes(*message, *file)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(strings.TrimSpace(*signature))
	if err != nil {
		return fmt.Errorf("signature is not hex: %w", err)
	}
	if !vault.Verify(*address, msg, sig) {
		return errors.New("signature is NOT valid")
	}
	fmt.Println("Signature is valid")
	return nil
}

func messageBytes(message, file string) ([]byte, error) {
	switch {
	case message != "" && file != "":
		return nil, errors.New("use either --message or --file")
	case file == "-":
		return io.ReadAll(os.Stdin)
	case file != "":
		return os.ReadFile(file)
	default:
		return []byte(message), nil
	}
}

// ── export / passwd / settings / destroy ────────────────────────────────

func (a *app) cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	address := fs.String("address", "", "Account address")
	fs.Parse(args)

	if *address == "" {
		return errors.New("usage: vaultctl export --address <a>")
	}
	password, err := a.readSecret("Vault password: ")
	if err != nil {
		return err
	}
	defer zero(password)

	phrase, err := a.ks.ExportSeed(*address, password)
	if err != nil {
		return err
	}
	fmt.Println("Recovery phrase (anyone who sees this controls the account):")
	fmt.Printf("  %s\n", phrase)
	return nil
}

func (a *app) cmdPasswd() error {
	old, err := a.readSecret("Current password: ")
	if err != nil {
		return err
	}
	defer zero(old)
	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer zero(password)

	if err := a.ks.ChangePassword(old, password); err != nil {
		return err
	}
	fmt.Println("Password changed")
	return nil
}

func (a *app) cmdSettings(args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	autoLock := fs.Int("autolock", -1, "Auto-lock minutes (0 disables)")
	network := fs.String("network", "", "Default network: mainnet or testnet")
	fs.Parse(args)

	s, err := a.ks.Settings()
	if err != nil {
		return err
	}
	if *autoLock < 0 && *network == "" {
		return printJSON(s)
	}
	if *autoLock >= 0 {
		s.AutoLockMinutes = *autoLock
	}
	if *network != "" {
		s.DefaultNetwork = strings.ToLower(*network)
	}
	if err := a.unlock(); err != nil {
		return err
	}
	if err := a.ks.UpdateSettings(s); err != nil {
		return err
	}
	return printJSON(s)
}

func (a *app) cmdDestroy(args []string) error {
	fs := flag.NewFlagSet("destroy", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm permanent deletion")
	fs.Parse(args)

	if !*yes {
		return errors.New("destroy deletes the vault permanently; rerun with --yes")
	}
	password, err := a.readSecret("Vault password: ")
	if err != nil {
		return err
	}
	defer zero(password)

	if err := a.ks.DestroyVault(password); err != nil {
		return err
	}
	fmt.Printf("Vault %s destroyed\n", a.cfg.Vault.ID)
	return nil
}

// ── helpers ─────────────────────────────────────────────────────────────

func (a *app) unlock() error {
	password, err := a.readSecret("Vault password: ")
	if err != nil {
		return err
	}
	defer zero(password)
	return a.ks.Unlock(password)
}

func (a *app) newPassword() ([]byte, error) {
	password, err := a.readSecret("New password: ")
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, errors.New("password must not be empty")
	}
	confirm, err := a.readSecret("Confirm password: ")
	if err != nil {
		zero(password)
		return nil, err
	}
	defer zero(confirm)
	if string(password) != string(confirm) {
		zero(password)
		return nil, errors.New("passwords do not match")
	}
	return password, nil
}

// readSecret reads a line without echo from the terminal, or a plain line
// when stdin is redirected.
func (a *app) readSecret(prompt string) ([]byte, error) {
	if a.tty {
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr) // newline after hidden input
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		return secret, nil
	}
	line, err := a.stdin.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	out := []byte(strings.TrimRight(string(line), "\r\n"))
	zero(line)
	return out, nil
}

// describe turns keystore errors into operator-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, vault.ErrNoVault):
		return "no vault yet; run 'vaultctl create'"
	case errors.Is(err, vault.ErrAlreadyInitialized):
		return "a vault already exists; use --vault to create another"
	case errors.Is(err, vault.ErrIncorrectPassword):
		return "incorrect password"
	case errors.Is(err, vault.ErrCannotDeleteLastAccount):
		return "cannot delete the only account; destroy the vault instead"
	default:
		return err.Error()
	}
}

func shortSeed(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func ptr[T any](v T) *T { return &v }

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
