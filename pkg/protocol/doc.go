// ABOUTME: Package protocol defines LiveVoice messages and the channel client
// ABOUTME: JSON message shapes over a websocket connection

// Package protocol carries audio between the client and a processing
// endpoint as JSON text messages. Outbound messages hold captured audio
// or a reset request; inbound messages hold synthesized audio, an
// interruption notice or an error.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{
//		ServerAddr: "localhost:3000",
//		OnClose:    func(reason string) { log.Printf("closed: %s", reason) },
//	})
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	for msg := range client.Messages() {
//		...
//	}
package protocol
