//go:build wasip1

// Mock interpreter for exercising the executor without a real Python or
// JavaScript build. Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -o mock.wasm mock.go
//
// A script is one command per line:
//
//	print <text>        write text to stdout
//	warn <text>         write text to stderr
//	call <fn> <json>    call a host function and print its data
//	fail <message>      fail the script
//	spin                loop forever
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var stdin = bufio.NewScanner(os.Stdin)

func main() {
	stdin.Buffer(make([]byte, 1<<20), 1<<20)

	if os.Getenv("PAGEKIT_SESSION") != "1" {
		script := ""
		if len(os.Args) > 1 {
			script = os.Args[1]
		}
		if err := run(script); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprint(os.Stderr, "\x00PAGEKIT_READY\x00")
	for stdin.Scan() {
		var cmd struct {
			Type string `json:"type"`
			Code string `json:"code"`
		}
		if err := json.Unmarshal(stdin.Bytes(), &cmd); err != nil {
			continue
		}
		if cmd.Type == "exit" {
			return
		}
		if err := run(cmd.Code); err != nil {
			fmt.Fprintf(os.Stderr, "\x00PAGEKIT_ERROR:%s\x00", err)
			continue
		}
		fmt.Fprint(os.Stderr, "\x00PAGEKIT_DONE\x00")
	}
}

func run(script string) error {
	for _, line := range strings.Split(script, "\n") {
		op, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch op {
		case "":
		case "print":
			fmt.Println(arg)
		case "warn":
			fmt.Fprintln(os.Stderr, arg)
		case "call":
			fn, args, _ := strings.Cut(arg, " ")
			data, err := call(fn, args)
			if err != nil {
				return err
			}
			fmt.Println(data)
		case "fail":
			return errors.New(arg)
		case "spin":
			for {
			}
		default:
			return fmt.Errorf("unknown command: %s", op)
		}
	}
	return nil
}

func call(fn, args string) (string, error) {
	if args == "" {
		args = "{}"
	}
	fmt.Fprintf(os.Stderr, "\x00PAGEKIT:{\"fn\":%q,\"args\":%s}\x00", fn, args)

	if !stdin.Scan() {
		return "", errors.New("no response")
	}
	var resp struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(stdin.Bytes(), &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return string(resp.Data), nil
}
