// Command example is a quick-start demonstration of the client: it grants a
// session from environment credentials, prints the authenticated identity,
// and fetches a page of posts from a guild.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	ruqqus "github.com/ruqqus-community/go-ruqqus"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

func main() {
	// Get credentials from environment variables
	clientID := os.Getenv("RUQQUS_CLIENT_ID")
	clientSecret := os.Getenv("RUQQUS_CLIENT_SECRET")
	code := os.Getenv("RUQQUS_CODE")
	refreshToken := os.Getenv("RUQQUS_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" {
		log.Fatal("RUQQUS_CLIENT_ID and RUQQUS_CLIENT_SECRET environment variables are required")
	}
	if code == "" && refreshToken == "" {
		log.Fatal("one of RUQQUS_CODE or RUQQUS_REFRESH_TOKEN is required")
	}

	// Route structured logs to stdout; adjust the level as needed.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := ruqqus.NewClient(&ruqqus.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         code,
		RefreshToken: refreshToken,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to Ruqqus: %v", err)
	}

	fmt.Println("Successfully connected to Ruqqus!")
	fmt.Printf("Granted scopes: %v\n", client.Scopes().Granted())

	if me := client.Identity(); me != nil {
		fmt.Printf("Authenticated as @%s (%d rep)\n", me.Username, me.Stats.PostRep+me.Stats.CommentRep)
	}

	// Fetch the newest posts from a guild.
	posts, err := client.GetGuildPosts(ctx, "general", &types.ListingOptions{Sort: "new", Limit: 5})
	if err != nil {
		log.Fatalf("Failed to fetch guild posts: %v", err)
	}

	fmt.Printf("\nNewest posts in +general:\n")
	for _, post := range posts {
		fmt.Printf("  [%s] %s (%d up / %d down)\n",
			post.ID, post.Content.Title, post.Votes.Upvotes, post.Votes.Downvotes)
	}
}
