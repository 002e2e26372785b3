package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	mathrand "math/rand"
	"time"

	"github.com/fatih/color"

	"Kasumi/server/internal/config"
	"Kasumi/server/internal/pkg/encryption"
	"Kasumi/server/internal/pkg/encryption/modes"
	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/services/cipher"
)

type app struct {
	cfg *config.Config
	out io.Writer
}

func newRand() *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
}

// service loads the cipher field from the parameter file, creating it on first use
func (a *app) service(ctx context.Context) (*cipher.Service, error) {
	store := galois.NewFileStore(a.cfg.Field.ParamsFile)
	field, err := galois.Ensure(ctx, store, a.cfg.Field.Degree, newRand())
	if err != nil {
		return nil, err
	}
	return cipher.NewService(field, nil)
}

func (a *app) request(f cipherFlags) (cipher.Request, error) {
	key, err := readValue(f.key, f.keyFile, "key")
	if err != nil {
		return cipher.Request{}, err
	}
	iv, err := readValue(f.iv, f.ivFile, "IV")
	if err != nil {
		return cipher.Request{}, err
	}
	text, err := readInput(f.text, f.in)
	if err != nil {
		return cipher.Request{}, err
	}
	return cipher.Request{Mode: f.mode, KeyHex: key, IVHex: iv, Text: text}, nil
}

func (a *app) encrypt(f cipherFlags) error {
	return a.run(f, modes.Encrypt, "-encrypted")
}

func (a *app) decrypt(f cipherFlags) error {
	return a.run(f, modes.Decrypt, "-decrypted")
}

func (a *app) run(f cipherFlags, dir modes.Direction, suffix string) error {
	ctx := context.Background()
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	req, err := a.request(f)
	if err != nil {
		return err
	}

	var resp *cipher.Response
	if dir == modes.Encrypt {
		resp, err = svc.Encrypt(ctx, req)
	} else {
		resp, err = svc.Decrypt(ctx, req)
	}
	if err != nil {
		return err
	}

	path := outputPath(f.out, f.in, suffix)
	if err := writeOutput(path, resp.Output); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s):\n%s\n", dir, resp.Mode, resp.Output)
	if path != "" {
		fmt.Fprintf(a.out, "written to %s\n", path)
	}
	switch resp.Integrity {
	case modes.Verified:
		fmt.Fprintln(a.out, color.GreenString("Integrity Verified"))
	case modes.Tampered:
		fmt.Fprintln(a.out, color.RedString("Integrity Tampered"))
	}
	return nil
}

func (a *app) selftest(f cipherFlags) error {
	ctx := context.Background()
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	req, err := a.request(f)
	if err != nil {
		return err
	}

	results, err := svc.SelfTest(ctx, req.KeyHex, req.IVHex, req.Text)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.OK {
			fmt.Fprintf(a.out, "%-4s %s\n", res.Mode, color.GreenString("ok"))
			continue
		}
		failed++
		detail := res.Error
		if detail == "" {
			detail = "round trip mismatch, integrity " + res.Integrity
		}
		fmt.Fprintf(a.out, "%-4s %s %s\n", res.Mode, color.RedString("FAIL"), detail)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d modes failed", failed, len(results))
	}
	return nil
}

func (a *app) field(degree uint, regenerate bool) error {
	ctx := context.Background()
	store := galois.NewFileStore(a.cfg.Field.ParamsFile)

	var params galois.Parameters
	if regenerate {
		found, err := galois.FindParameters(degree, newRand())
		if err != nil {
			return err
		}
		if err := store.SaveParameters(ctx, found); err != nil {
			return err
		}
		params = found
	} else {
		field, err := galois.Ensure(ctx, store, degree, newRand())
		if err != nil {
			return err
		}
		params = field.Parameters()
	}

	fmt.Fprintf(a.out, "GF(2^%d) polynomial 0x%x generator 0x%x (%s)\n",
		params.Degree, params.Polynomial, params.Generator, a.cfg.Field.ParamsFile)
	return nil
}

func (a *app) keygen(keyFile, ivFile string) error {
	key, err := encryption.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	iv, err := encryption.GenerateIV(rand.Reader)
	if err != nil {
		return err
	}
	ivHex := fmt.Sprintf("%016x", iv)

	if err := writeOutput(keyFile, key.String()); err != nil {
		return err
	}
	if err := writeOutput(ivFile, ivHex); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "key %s\niv  %s\n", key, ivHex)
	return nil
}
