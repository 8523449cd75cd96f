// Command ws_chat is a small terminal client for poking at the
// community messaging server: open a chat, send messages, watch
// presence and typing signals come back.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tableside/community-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token from /api/login")
	open := flag.String("open", "", "counterparty user ID to open on start")
	flag.Parse()

	if *token == "" {
		return errors.New("-token is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + *token}},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *open != "" {
		if err := writeFrame(ctx, conn, proto.InboundTypeOpen, proto.OpenData{CounterpartyID: *open}); err != nil {
			return err
		}
	}

	go func() {
		for {
			var frame proto.Outbound
			if err := wsjson.Read(ctx, conn, &frame); err != nil {
				cancel()
				return
			}
			printFrame(frame)
		}
	}()

	fmt.Println("commands: /open <user-id>, /send <user-id> <text>, /typing, /conversations, /notifications, /read, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			if err := writeFrame(ctx, conn, proto.InboundTypeOpen, proto.OpenData{CounterpartyID: id}); err != nil {
				return err
			}
		case strings.HasPrefix(line, "/send "):
			parts := strings.SplitN(strings.TrimPrefix(line, "/send "), " ", 2)
			if len(parts) != 2 {
				fmt.Println("usage: /send <user-id> <text>")
				continue
			}
			if err := writeFrame(ctx, conn, proto.InboundTypeSend, proto.SendData{ReceiverID: parts[0], Body: parts[1]}); err != nil {
				return err
			}
		case line == "/typing":
			if err := writeFrame(ctx, conn, proto.InboundTypeTyping, struct{}{}); err != nil {
				return err
			}
		case line == "/conversations":
			if err := writeFrame(ctx, conn, proto.InboundTypeConversations, struct{}{}); err != nil {
				return err
			}
		case line == "/notifications":
			if err := writeFrame(ctx, conn, proto.InboundTypeNotifications, struct{}{}); err != nil {
				return err
			}
		case line == "/read":
			if err := writeFrame(ctx, conn, proto.InboundTypeNotificationsRead, struct{}{}); err != nil {
				return err
			}
		default:
			fmt.Println("unknown command")
		}
	}
	return scanner.Err()
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frameType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Type: frameType, Data: raw})
}

func printFrame(frame proto.Outbound) {
	if frame.Error != nil {
		fmt.Printf("[error %s] %s\n", frame.Error.Code, frame.Error.Msg)
		return
	}
	data, _ := json.Marshal(frame.Data)
	fmt.Printf("[%s] %s\n", frame.Event, data)
}
