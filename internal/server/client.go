package server

import (
	"context"
	"net/http"
	"time"

	"mud-server/internal/engine"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
	loginTimeout   = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и engine.Service
type Client struct {
	Game    *engine.Service
	Conn    *websocket.Conn
	Send    chan api.ServerMessage
	Session engine.Session
}

func NewClient(game *engine.Service, conn *websocket.Conn) *Client {
	return &Client{
		Game: game,
		Conn: conn,
		Send: make(chan api.ServerMessage, 256),
	}
}

// readCommand читает одно сообщение и декодирует его через goccy/go-json.
func (c *Client) readCommand() (api.ClientCommand, error) {
	var cmd api.ClientCommand
	_, data, err := c.Conn.ReadMessage()
	if err != nil {
		return cmd, err
	}
	err = json.Unmarshal(data, &cmd)
	return cmd, err
}

// handshake ждет LOGIN и входит в мир. false - соединение нужно закрыть.
func (c *Client) handshake() bool {
	cmd, err := c.readCommand()
	if err != nil || engine.ParseAction(cmd.Action) != engine.ActionLogin {
		logger.Log.WithError(err).Warn("Handshake failed")
		c.Send <- errorMessage("Сначала нужно войти (LOGIN).")
		close(c.Send)
		return false
	}

	var p api.LoginPayload
	if err := json.Unmarshal(cmd.Payload, &p); err == nil {
		err = p.Validate()
	}
	if err != nil {
		c.Send <- errorMessage("Неверные данные входа.")
		close(c.Send)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	sess, err := c.Game.Login(ctx, p)
	if err != nil {
		logger.Log.WithError(err).Error("Login failed")
		c.Send <- errorMessage("Сервер не смог впустить вас.")
		close(c.Send)
		return false
	}
	c.Session = sess
	return true
}

// readPump читает команды от клиента
func (c *Client) readPump() {
	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// 1. HANDSHAKE (LOGIN)
	if !c.handshake() {
		return
	}
	entityID := c.Session.EntityID

	// 2. ПОДПИСКА НА ОБНОВЛЕНИЯ
	updates := c.Game.Hub.Register(entityID)
	c.Send <- c.Session.Welcome()

	// Пересылка из Hub в writePump
	go func() {
		for msg := range updates {
			c.Send <- msg
		}
		close(c.Send)
	}()

	defer func() {
		c.Game.Hub.Unregister(entityID, updates)
		c.Game.Disconnect(entityID, c.Session.Conn)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection")
		}
		logger.Log.WithField("entity_id", entityID).Info("Connection closed")
	}()

	// Первая отрисовка
	_ = c.Game.ProcessCommand(entityID, api.ClientCommand{Action: "LOOK"})

	// 3. ЦИКЛ ЧТЕНИЯ КОМАНД
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.WithFields(logrus.Fields{"entity_id": entityID}).WithError(err).Error("WS error")
			}
			break
		}
		var cmd api.ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.Game.Hub.SendTo(entityID, errorMessage("Неверный JSON."))
			continue
		}
		if err := c.Game.ProcessCommand(entityID, cmd); err != nil {
			break
		}
	}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				logger.Log.WithError(err).Error("encode message failed")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Log.WithError(err).Debug("write message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

func errorMessage(text string) api.ServerMessage {
	return api.ServerMessage{Type: api.MsgError, Payload: api.LogEntry{
		Text:      text,
		Type:      "ERROR",
		Timestamp: time.Now().UnixMilli(),
	}}
}
