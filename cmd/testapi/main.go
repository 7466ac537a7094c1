// Command testapi smoke-tests the client against the live API: it connects
// with environment credentials and walks through the read-only endpoints,
// reporting each result. Useful for verifying credentials and API drift.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	ruqqus "github.com/ruqqus-community/go-ruqqus"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

const (
	testGuild = "general"
	testUser  = "captainmeta4"
)

func main() {
	clientID := os.Getenv("RUQQUS_CLIENT_ID")
	clientSecret := os.Getenv("RUQQUS_CLIENT_SECRET")
	refreshToken := os.Getenv("RUQQUS_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		log.Fatal("RUQQUS_CLIENT_ID, RUQQUS_CLIENT_SECRET and RUQQUS_REFRESH_TOKEN environment variables are required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client, err := ruqqus.NewClient(&ruqqus.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	report("connect", nil)
	fmt.Printf("  scopes: %v\n", client.Scopes().Granted())

	guild, err := client.GetGuild(ctx, testGuild)
	report("get_guild", err)
	if guild != nil {
		fmt.Printf("  +%s: %d subscribers\n", guild.Name, guild.Subscribers)
	}

	available, err := client.GuildAvailable(ctx, testGuild)
	report("guild_available", err)
	fmt.Printf("  +%s available: %v\n", testGuild, available)

	posts, err := client.GetGuildPosts(ctx, testGuild, &types.ListingOptions{Limit: 3})
	report("get_guild_posts", err)
	for _, post := range posts {
		fmt.Printf("  [%s] %s\n", post.ID, post.Content.Title)
	}

	comments, err := client.GetGuildComments(ctx, testGuild, &types.ListingOptions{Limit: 3})
	report("get_guild_comments", err)
	for _, comment := range comments {
		fmt.Printf("  [%s] by @%s\n", comment.ID, comment.AuthorName)
	}

	user, err := client.GetUser(ctx, testUser)
	report("get_user", err)
	if user != nil {
		fmt.Printf("  @%s: %d posts, %d comments\n", user.Username, user.Stats.Posts, user.Stats.Comments)
	}

	if len(posts) > 0 {
		post, err := client.GetPost(ctx, posts[0].ID)
		report("get_post", err)
		if post != nil && post.Guild != nil {
			fmt.Printf("  [%s] in +%s\n", post.ID, post.Guild.Name)
		}
	}

	fmt.Println("done")
}

func report(operation string, err error) {
	if err != nil {
		fmt.Printf("FAIL %-20s %v\n", operation, err)
		return
	}
	fmt.Printf("ok   %s\n", operation)
}
