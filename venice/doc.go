// Package venice is the public client for the Venice AI platform. It wires
// typed endpoint wrappers (chat, models, images, audio, video, embeddings,
// characters, account) onto the transport core in package core.
//
//	client, err := venice.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := client.Chat.Complete(ctx, &venice.ChatRequest{
//	    Model:    "venice-uncensored",
//	    Messages: []venice.Message{{Role: venice.RoleUser, Content: "Hello"}},
//	})
//
// Every wrapper is a thin declarative mapping: it builds a path and body and
// calls one of the core primitives. Transport concerns (auth, pooling,
// retries, rate-limit accounting, SSE decoding) live entirely in core.
package venice
