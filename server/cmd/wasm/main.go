//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"syscall/js"

	"Kasumi/server/internal/pkg/encryption"
	"Kasumi/server/internal/pkg/encryption/modes"
	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/services/cipher"
)

var defaultField = galois.Parameters{Degree: 16, Polynomial: 0x103DD, Generator: 2}

var service *cipher.Service

func setField(params galois.Parameters) error {
	field, err := galois.NewField(params)
	if err != nil {
		return err
	}
	svc, err := cipher.NewService(field, nil)
	if err != nil {
		return err
	}
	service = svc
	return nil
}

func errorValue(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// cipherFunc wraps Encrypt or Decrypt as fn(mode, keyHex, ivHex, text)
func cipherFunc(op func(context.Context, cipher.Request) (*cipher.Response, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 4 {
			return js.ValueOf(map[string]interface{}{"error": "expected mode, key, iv, text"})
		}
		resp, err := op(context.Background(), cipher.Request{
			Mode:   args[0].String(),
			KeyHex: args[1].String(),
			IVHex:  args[2].String(),
			Text:   args[3].String(),
		})
		if err != nil {
			return errorValue(err)
		}
		return js.ValueOf(map[string]interface{}{
			"output":    resp.Output,
			"blocks":    resp.Blocks,
			"integrity": resp.Integrity.String(),
		})
	})
}

func registerFunctions() {
	api := js.Global().Get("Object").New()

	api.Set("encrypt", cipherFunc(func(ctx context.Context, req cipher.Request) (*cipher.Response, error) {
		return service.Encrypt(ctx, req)
	}))
	api.Set("decrypt", cipherFunc(func(ctx context.Context, req cipher.Request) (*cipher.Response, error) {
		return service.Decrypt(ctx, req)
	}))

	api.Set("modes", js.FuncOf(func(this js.Value, args []js.Value) any {
		names := modes.Names()
		out := make([]interface{}, len(names))
		for i, n := range names {
			out[i] = n
		}
		return js.ValueOf(out)
	}))

	// generateKey() -> {key, iv}
	api.Set("generateKey", js.FuncOf(func(this js.Value, args []js.Value) any {
		key, err := encryption.GenerateKey(rand.Reader)
		if err != nil {
			return errorValue(err)
		}
		iv, err := encryption.GenerateIV(rand.Reader)
		if err != nil {
			return errorValue(err)
		}
		return js.ValueOf(map[string]interface{}{
			"key": key.String(),
			"iv":  fmt.Sprintf("%016x", iv),
		})
	}))

	// setField(polynomial, generator) switches the GF(2^16) used by FL
	api.Set("setField", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return js.ValueOf(map[string]interface{}{"error": "expected polynomial, generator"})
		}
		params := galois.Parameters{
			Degree:     16,
			Polynomial: uint64(args[0].Int()),
			Generator:  uint64(args[1].Int()),
		}
		if err := setField(params); err != nil {
			return errorValue(err)
		}
		return js.ValueOf(true)
	}))

	js.Global().Set("Kasumi", api)
}

func main() {
	if err := setField(defaultField); err != nil {
		panic(err)
	}

	registerFunctions()

	// Export a ready flag to signal that WASM is ready
	js.Global().Set("WasmReady", js.ValueOf(true))
	fmt.Println("Kasumi WASM module ready")

	// Keep the program running
	<-make(chan struct{})
}
