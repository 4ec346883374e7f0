package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingvault/internal/rpc"
	"github.com/Klingon-tech/klingvault/internal/rpcclient"
)

// daemonApp runs commands against a vaultd instance instead of the store.
type daemonApp struct {
	app
	client *rpcclient.Client
}

func (d *daemonApp) run(cmd string, args []string) int {
	var err error
	switch cmd {
	case "info", "status":
		err = d.cmdStatus()
	case "unlock":
		err = d.cmdUnlock()
	case "lock":
		err = d.client.Lock()
	case "touch":
		err = d.client.Touch()
	case "list":
		err = d.cmdList(args)
	case "account":
		err = d.cmdAccountCreate(args)
	case "sign":
		err = d.cmdSign(args)
	case "verify":
		err = cmdVerify(args)
	case "help":
		usage()
	default:
		err = fmt.Errorf("%s is not available with --daemon; stop vaultd or drop --daemon", cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeRPC(err))
		return 1
	}
	return 0
}

func (d *daemonApp) cmdStatus() error {
	s, err := d.client.Status()
	if err != nil {
		return err
	}
	fmt.Printf("Endpoint:  %s\n", d.cfg.RPC.Endpoint())
	if !s.Initialized {
		fmt.Println("Status:    not created")
		return nil
	}
	state := "locked"
	if s.Unlocked {
		state = "unlocked"
	}
	fmt.Printf("Status:    %s\n", state)
	fmt.Printf("Network:   %s\n", s.Settings.DefaultNetwork)
	if s.Settings.AutoLockMinutes == 0 {
		fmt.Println("Auto-lock: off")
	} else {
		fmt.Printf("Auto-lock: %d min\n", s.Settings.AutoLockMinutes)
	}
	fmt.Printf("Accounts:  %d\n", s.Accounts)
	return nil
}

func (d *daemonApp) cmdUnlock() error {
	password, err := d.readSecret("Vault password: ")
	if err != nil {
		return err
	}
	defer zero(password)
	if err := d.client.Unlock(password); err != nil {
		return err
	}
	fmt.Println("Vault unlocked")
	return nil
}

func (d *daemonApp) cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Output as JSON")
	fs.Parse(args)

	accounts, err := d.client.Accounts()
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

func (d *daemonApp) cmdAccountCreate(args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return errors.New("usage: vaultctl --daemon account create [--name <n>] [--seed <id>] [--path <p>]")
	}
	fs := flag.NewFlagSet("account create", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	seed := fs.String("seed", "", "Seed ID to derive from (default: master)")
	path := fs.String("path", "", "Derivation path, or m for the seed's master key")
	fs.Parse(args[1:])

	acct, err := d.client.CreateAccount(rpc.AccountCreateParam{
		Name:           *name,
		SeedID:         *seed,
		DerivationPath: *path,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account: %s (%s)\n", acct.Address, acct.Name)
	return nil
}

func (d *daemonApp) cmdSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	address := fs.String("address", "", "Signing account address")
	message := fs.String("message", "", "Message text")
	file := fs.String("file", "", "Read the message from a file (- for stdin)")
	fs.Parse(args)

	if *address == "" {
		return errors.New("usage: vaultctl --daemon sign --address <a> (--message <m> | --file <f>)")
	}
	msg, err := messageBytes(*message, *file)
	if err != nil {
		return err
	}
	sig, err := d.client.Sign(*address, msg)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(sig))
	return nil
}

// describeRPC turns daemon errors into operator-facing text.
func describeRPC(err error) string {
	switch {
	case rpcclient.IsCode(err, rpc.CodeVaultLocked):
		return "the daemon's vault is locked; run 'vaultctl --daemon unlock'"
	case rpcclient.IsCode(err, rpc.CodeNoVault):
		return "no vault yet; run 'vaultctl create' with vaultd stopped"
	case rpcclient.IsCode(err, rpc.CodeIncorrectPassword):
		return "incorrect password"
	default:
		return err.Error()
	}
}

func newDaemonApp(a app) *daemonApp {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(os.Stdin)
	}
	return &daemonApp{app: a, client: rpcclient.New(a.cfg.RPC.Endpoint())}
}
