// Command cpauth is the prover-side CLI: it registers a password-derived
// commitment pair and logs in with either protocol variant. The password
// itself is never transmitted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/client"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
)

func main() {
	var (
		server    = flag.String("server", "http://localhost:8080", "Auth server base URL")
		groupName = flag.String("group", "modp2048", "Group backend (modp2048|ristretto255|secp256k1)")
		username  = flag.String("user", "", "Username")
		password  = flag.String("password", "", "Password")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
	}
	command := flag.Arg(0)

	if *username == "" || *password == "" {
		log.Fatal("both -user and -password are required")
	}

	grp, err := group.FromName(*groupName)
	if err != nil {
		log.Fatalf("Unsupported group %q: %v", *groupName, err)
	}

	c := client.New(*server, grp)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch command {
	case "register":
		if err := c.Register(ctx, *username, *password); err != nil {
			log.Fatalf("Registration failed: %v", err)
		}
		log.Printf("Registered %s", *username)

	case "login":
		token, err := c.Login(ctx, *username, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		log.Println("Login successful (interactive)")
		fmt.Println(token)

	case "login-ni":
		token, err := c.LoginNonInteractive(ctx, *username, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		log.Println("Login successful (Fiat-Shamir)")
		fmt.Println(token)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cpauth [flags] register|login|login-ni")
	flag.PrintDefaults()
	os.Exit(2)
}
