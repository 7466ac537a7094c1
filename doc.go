// Package ruqqus provides a client for the Ruqqus REST API with OAuth2
// session management and poll-based feeds of new posts and comments.
//
// # Getting Started
//
// Create a client with your application credentials and either a one-time
// authorization code or a previously issued refresh token, then connect:
//
//	client, err := ruqqus.NewClient(&ruqqus.Config{
//		ClientID:     os.Getenv("RUQQUS_CLIENT_ID"),
//		ClientSecret: os.Getenv("RUQQUS_CLIENT_SECRET"),
//		Code:         os.Getenv("RUQQUS_CODE"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Connect performs the initial token grant, fetches the authenticated
// user's identity, and starts both the token renewal loop and the feed
// poller. The session then keeps itself alive: access tokens are renewed
// shortly before they expire, for as long as the grant included a refresh
// token.
//
// # Events
//
// Handlers registered with OnLogin, OnPost, and OnComment are invoked from
// the client's background goroutines. OnPost and OnComment fire at most
// once per submission; submissions that already exist when the first poll
// runs are absorbed silently so a freshly started client does not replay
// the current front page.
//
//	client.OnPost(func(post *types.Post) {
//		fmt.Printf("+%s %s\n", post.ID, post.Content.Title)
//	})
//
// # Scopes
//
// Every operation checks its required scope before any network traffic.
// The scopes of a session are fixed at the first grant; request the ones
// you need in the authorization URL (see BuildAuthURL).
//
// # Errors
//
// Errors are typed: see the pkg/errors package. CredentialError means the
// stored credentials were rejected and the session cannot recover without
// new ones; APIError carries the status and message of a server rejection.
package ruqqus
