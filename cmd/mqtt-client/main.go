// mqtt-client is a small interactive demo client: it subscribes to a
// couple of filters, publishes a timestamp once a second, and prints
// whatever the broker delivers until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-io/mqtt"
	"github.com/golang-io/mqtt/packet"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	c := mqtt.New(
		mqtt.URL("mqtt://127.0.0.1:1883"),
		mqtt.KeepAlive(30),
		mqtt.Subscription(
			packet.Subscription{TopicFilter: "+", RetainHandling: 0x02},
			packet.Subscription{TopicFilter: "a/b/c", RetainHandling: 0x02},
		),
	)
	c.OnMessage(func(msg *packet.Message) {
		log.Printf("on: %s", msg.String())
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := c.SubmitMessage(&packet.Message{
				TopicName: "a/b/c",
				Content:   []byte(time.Now().Format("2006-01-02 15:04:05")),
			}); err != nil {
				log.Printf("%v", err)
			}
			time.Sleep(time.Second)
		}
	})

	group.Go(func() error {
		defer cancel()
		sign := make(chan os.Signal, 1)
		signal.Notify(sign, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sign:
			return fmt.Errorf("got sign: %s", sig)
		}
	})

	group.Go(func() error {
		return c.ConnectAndSubscribe(ctx)
	})
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}
