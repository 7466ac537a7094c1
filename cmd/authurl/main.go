// Command authurl interactively builds a Ruqqus OAuth2 authorization URL.
// Open the printed URL in a browser, approve the requested scopes, and the
// redirect will carry the one-time code that Config.Code expects.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	ruqqus "github.com/ruqqus-community/go-ruqqus"
)

func main() {
	reader := bufio.NewReader(os.Stdin)

	clientID := prompt(reader, "Client ID")
	if clientID == "" {
		log.Fatal("client ID is required")
	}

	redirect := prompt(reader, "Redirect URI (blank for http://localhost)")

	fmt.Println("Scopes: identity, create, read, update, delete, vote, guildmaster, or \"all\"")
	scopes := prompt(reader, "Scopes (comma-separated)")
	if scopes == "" {
		scopes = "all"
	}

	permanent := strings.EqualFold(prompt(reader, "Request a refresh token? (y/N)"), "y")

	url, err := ruqqus.BuildAuthURL(&ruqqus.AuthURLConfig{
		ClientID:  clientID,
		Redirect:  redirect,
		Scopes:    strings.Split(scopes, ","),
		Permanent: permanent,
	})
	if err != nil {
		log.Fatalf("Failed to build authorization URL: %v", err)
	}

	fmt.Println()
	fmt.Println(url)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line)
}
