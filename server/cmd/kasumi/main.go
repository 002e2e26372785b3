package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"

	"Kasumi/server/internal/config"
	"Kasumi/server/internal/pkg/helpers"
)

var (
	commit  string
	version = "unversioned"
	date    string
)

// cipherFlags are shared by encrypt, decrypt and selftest
type cipherFlags struct {
	mode    string
	key     string
	keyFile string
	iv      string
	ivFile  string
	text    string
	in      string
	out     string
}

func (f *cipherFlags) attach(sc *flaggy.Subcommand, withMode bool) {
	if withMode {
		sc.String(&f.mode, "m", "mode", "Chaining mode: ECB, CBC, PCBC, CFB, OFB, CTR or GCM")
	}
	sc.String(&f.key, "k", "key", "Key as up to 32 hex digits")
	sc.String(&f.keyFile, "K", "key-file", "File holding the hex key")
	sc.String(&f.iv, "v", "iv", "IV as up to 16 hex digits (not used by ECB)")
	sc.String(&f.ivFile, "V", "iv-file", "File holding the hex IV")
	sc.String(&f.text, "t", "text", "Inline input")
	sc.String(&f.in, "i", "in", "Input file")
	if withMode {
		sc.String(&f.out, "o", "out", "Output file (defaults to the input name with a suffix)")
	}
}

func main() {
	info := fmt.Sprintf(
		"%s\nDate: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, commit, runtime.GOOS, runtime.GOARCH,
	)

	flaggy.SetName("kasumi")
	flaggy.SetDescription("Encrypt and decrypt with the KASUMI block cipher")
	flaggy.SetVersion(info)

	paramsFile := ""
	flaggy.String(&paramsFile, "p", "params", "Field parameter file (overrides the config)")

	var encFlags, decFlags, testFlags cipherFlags

	encryptCmd := flaggy.NewSubcommand("encrypt")
	encryptCmd.Description = "Encrypt text or a file, writing hex ciphertext"
	encFlags.attach(encryptCmd, true)
	flaggy.AttachSubcommand(encryptCmd, 1)

	decryptCmd := flaggy.NewSubcommand("decrypt")
	decryptCmd.Description = "Decrypt hex ciphertext from text or a file"
	decFlags.attach(decryptCmd, true)
	flaggy.AttachSubcommand(decryptCmd, 1)

	selftestCmd := flaggy.NewSubcommand("selftest")
	selftestCmd.Description = "Round-trip the input through every mode"
	testFlags.attach(selftestCmd, false)
	flaggy.AttachSubcommand(selftestCmd, 1)

	degree := 16
	regenerate := false
	fieldCmd := flaggy.NewSubcommand("field")
	fieldCmd.Description = "Show, or create, the Galois field parameters"
	fieldCmd.Int(&degree, "d", "degree", "Field degree, 8 or 16")
	fieldCmd.Bool(&regenerate, "r", "regenerate", "Search for new parameters and overwrite the stored ones")
	flaggy.AttachSubcommand(fieldCmd, 1)

	keyOut, ivOut := "", ""
	keygenCmd := flaggy.NewSubcommand("keygen")
	keygenCmd.Description = "Generate a random key and IV"
	keygenCmd.String(&keyOut, "K", "key-file", "Write the key to this file")
	keygenCmd.String(&ivOut, "V", "iv-file", "Write the IV to this file")
	flaggy.AttachSubcommand(keygenCmd, 1)

	flaggy.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err.Error())
	}
	helpers.ConfigureLogging(cfg.Log.Level, cfg.Log.Format)
	if paramsFile != "" {
		cfg.Field.ParamsFile = paramsFile
	}

	app := &app{cfg: cfg, out: os.Stdout}

	switch {
	case encryptCmd.Used:
		err = app.encrypt(encFlags)
	case decryptCmd.Used:
		err = app.decrypt(decFlags)
	case selftestCmd.Used:
		err = app.selftest(testFlags)
	case fieldCmd.Used:
		err = app.field(uint(degree), regenerate)
	case keygenCmd.Used:
		err = app.keygen(keyOut, ivOut)
	default:
		flaggy.ShowHelpAndExit("a subcommand is required")
	}

	if err != nil {
		newErr := errors.Wrap(err, 0)
		helpers.NewLogger("CLI").Debug(newErr.ErrorStack())
		log.Fatal(err.Error())
	}
}
