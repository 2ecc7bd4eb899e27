// Interactive terminal client for the support-chat server. Mints its own
// token from the shared secret, so it is a development tool, not a
// production client.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/edulink/supportchat/pkg/auth"
	"github.com/edulink/supportchat/pkg/model"
)

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "chat server address")
	userID := flag.String("user", "student1", "participant id")
	to := flag.String("to", "admin", "counterpart to message")
	secret := flag.String("secret", "", "shared JWT secret (dev only)")
	flag.Parse()

	if *secret == "" {
		log.Fatal("missing -secret")
	}
	token, err := auth.New(*secret).Mint(*userID, 24*time.Hour)
	if err != nil {
		log.Fatal("mint token:", err)
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	log.Printf("connecting to %s as %s", u.String(), *userID)

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)
	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	if err := c.WriteJSON(model.ClientEvent{Type: model.EventJoin}); err != nil {
		log.Fatal("join:", err)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var ev model.ServerEvent
			if err := c.ReadJSON(&ev); err != nil {
				log.Println("read:", err)
				return
			}

			switch ev.Type {
			case model.EventNewMessage:
				fmt.Printf("\r%s: %s\n> ", ev.Message.Sender, ev.Message.Content)
			case model.EventAck:
				if ev.Status == model.AckRejected {
					fmt.Printf("\rsend rejected: %s\n> ", ev.Error)
				}
			case model.EventReadReceipt:
				fmt.Printf("\r%s has read your messages\n> ", ev.Reader)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				break
			}

			err := c.WriteJSON(model.ClientEvent{
				Type:          model.EventSendMessage,
				CorrelationID: uuid.NewString(),
				Receiver:      *to,
				Content:       text,
			})
			if err != nil {
				log.Println("write:", err)
				break
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and then
			// waiting (with timeout) for the server to close the connection.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
