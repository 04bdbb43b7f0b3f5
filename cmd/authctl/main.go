// authctl llama a la API del servidor desde la linea de comandos:
//
//	authctl createUser '{"email":"ada@example.com"}'
//	authctl -password signIn '{"email":"ada@example.com"}'
//	authctl -get result.tokens.accessToken signIn @login.json
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/term"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("AUTHCTL_ADDR", "http://localhost:8080"), "server base url")
	bearer := flag.String("token", os.Getenv("AUTHCTL_TOKEN"), "access token sent as bearer")
	get := flag.String("get", "", "print only this gjson path of the response")
	askPassword := flag.Bool("password", false, "prompt for a password and set it in the payload")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: authctl [flags] <api> [json|@file|-]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if flag.Arg(0) == "list" {
		if err := listAPIs(*addr, *timeout); err != nil {
			log.Fatal(err)
		}
		return
	}

	payload, err := readPayload(flag.Arg(1), os.Stdin)
	if err != nil {
		log.Fatal(err)
	}
	if *askPassword {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			log.Fatalf("leer password: %v", err)
		}
		if payload, err = sjson.SetBytes(payload, "password", string(pw)); err != nil {
			log.Fatalf("armar payload: %v", err)
		}
	}

	status, body, err := callAPI(*addr, *bearer, flag.Arg(0), payload, *timeout)
	if err != nil {
		log.Fatal(err)
	}
	if *get != "" && status < 300 {
		fmt.Println(gjson.GetBytes(body, *get).String())
		return
	}
	os.Stdout.Write(pretty.Color(pretty.Pretty(body), nil))
	if status >= 300 {
		os.Exit(1)
	}
}

// readPayload acepta JSON literal, @archivo o "-" para stdin.
func readPayload(arg string, stdin io.Reader) ([]byte, error) {
	var raw []byte
	switch {
	case arg == "":
		raw = []byte("{}")
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		raw = b
	default:
		raw = []byte(arg)
	}
	raw = bytes.TrimSpace(raw)
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return raw, nil
}

func callAPI(addr, bearer, path string, payload []byte, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	url := strings.TrimRight(addr, "/") + "/api/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return do(req)
}

func listAPIs(addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/api", nil)
	if err != nil {
		return err
	}
	_, body, err := do(req)
	if err != nil {
		return err
	}
	for _, p := range gjson.GetBytes(body, "apis").Array() {
		fmt.Println(p.String())
	}
	return nil
}

func do(req *http.Request) (int, []byte, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call %s: %w", req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
