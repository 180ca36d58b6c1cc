// Command cli is the operator tool for the beyond directory: it generates
// identity keypairs, signs requests by hand, and registers users.
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/beyond/internal/buildinfo"
	"github.com/dmitrijs2005/beyond/internal/common"
	"github.com/dmitrijs2005/beyond/internal/requestsig"
)

func main() {
	buildinfo.PrintBuildData(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "sign":
		err = runSign(os.Args[2:])
	case "register":
		err = runRegister(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cli <keygen|sign|register> [flags]")
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s is not a PEM file", path)
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// runKeygen writes a PKCS#1 PEM private key and prints the base64 DER
// public key the directory stores.
func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "beyond_key.pem", "private key output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	if err := os.WriteFile(*out, pem.EncodeToMemory(block), 0o600); err != nil {
		return err
	}

	public, err := requestsig.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}
	fmt.Println(public)
	return nil
}

// runSign prints the signature and timestamp headers for a request.
func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyPath := fs.String("key", "beyond_key.pem", "private key file")
	method := fs.String("method", http.MethodGet, "HTTP method")
	path := fs.String("path", "/", "request path")
	bodyPath := fs.String("body", "", "body file, empty for no body")
	if err := fs.Parse(args); err != nil {
		return err
	}

	priv, err := loadPrivateKey(*keyPath)
	if err != nil {
		return err
	}

	var body []byte
	if *bodyPath != "" {
		if body, err = os.ReadFile(*bodyPath); err != nil {
			return err
		}
	}

	ts := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	sig, err := requestsig.Sign(priv, *method, *path, body, ts)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", common.SignatureHeaderName, sig)
	fmt.Printf("%s: %s\n", common.TimestampHeaderName, ts)
	return nil
}

// runRegister PUTs the user document built from the keypair.
func runRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	keyPath := fs.String("key", "beyond_key.pem", "private key file")
	server := fs.String("server", "http://127.0.0.1:8080", "directory base URL")
	name := fs.String("name", "", "user name to register")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	priv, err := loadPrivateKey(*keyPath)
	if err != nil {
		return err
	}
	public, err := requestsig.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}

	doc, err := json.Marshal(map[string]any{
		"name":       *name,
		"public_key": map[string]string{"rsa": public},
	})
	if err != nil {
		return err
	}

	url := *server + "/users/" + *name
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(doc))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusCreated:
		fmt.Printf("registered %s\n", *name)
	case http.StatusOK:
		fmt.Printf("%s already registered with this key\n", *name)
	default:
		return fmt.Errorf("registration failed: %d %s", resp.StatusCode, out)
	}
	return nil
}
