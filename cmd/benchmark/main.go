package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-io/mqtt"
	"github.com/golang-io/mqtt/packet"
	"golang.org/x/sync/errgroup"
)

// A thin load generator: one client per goroutine, each publishing to
// its own topic once a second while subscribed to everything.
func main() {
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 100; i++ {
		i := i
		c := mqtt.New(
			mqtt.URL("mqtt://127.0.0.1:1883"),
			mqtt.ClientID(fmt.Sprintf("bench-%d", i)),
			mqtt.Subscription(packet.Subscription{TopicFilter: "+", RetainHandling: 0x02}, packet.Subscription{TopicFilter: "a/b/c", RetainHandling: 0x02}),
		)
		c.OnMessage(func(message *packet.Message) {
			log.Printf("id=%s, topic=%s", c.ID(), message.TopicName)
		})

		group.Go(func() error {
			return c.ConnectAndSubscribe(ctx)
		})
		group.Go(func() error {
			timer := time.NewTimer(time.Second)
			defer timer.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
					_ = c.SubmitMessage(&packet.Message{
						TopicName: fmt.Sprintf("topic-%d", i),
						Content:   []byte("hello world"),
					})
					timer.Reset(time.Second)
				}
			}
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}
