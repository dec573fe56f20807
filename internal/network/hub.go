package network

import (
	"sync"

	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// OutboxSize - емкость личного канала игрока.
const OutboxSize = 100

// Broadcaster занимается только рассылкой сообщений подписчикам.
// Единственный тип, который трогают и игровой цикл, и горутины сокетов.
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: EntityID -> Личный канал
	subscribers map[string]chan api.ServerMessage
	dropped     uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan api.ServerMessage),
	}
}

// Register создает личный канал для игрока. Старый канал (повторный вход) закрывается.
func (b *Broadcaster) Register(entityID string) chan api.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[entityID]; ok {
		close(old)
	}

	ch := make(chan api.ServerMessage, OutboxSize)
	b.subscribers[entityID] = ch
	return ch
}

// Unregister удаляет подписчика, только если канал все еще его.
// Соединение, которое уже вытеснили повторным входом, не трогает новое.
func (b *Broadcaster) Unregister(entityID string, ch chan api.ServerMessage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.subscribers[entityID]
	if !ok || cur != ch {
		return false
	}
	close(cur)
	delete(b.subscribers, entityID)
	return true
}

// SendTo отправляет сообщение конкретному ID (Unicast). Медленный клиент теряет сообщение.
func (b *Broadcaster) SendTo(entityID string, msg api.ServerMessage) {
	b.mu.RLock()
	ch, ok := b.subscribers[entityID]
	if !ok {
		b.mu.RUnlock()
		return
	}
	select {
	case ch <- msg:
		b.mu.RUnlock()
	default:
		b.mu.RUnlock()
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		logger.Log.WithFields(logrus.Fields{
			"component": "broadcaster",
			"entity_id": entityID,
			"type":      msg.Type,
		}).Warn("Outbox full, message dropped")
	}
}

// Broadcast отправляет всем подписчикам.
func (b *Broadcaster) Broadcast(msg api.ServerMessage) {
	b.mu.RLock()
	var dropped uint64
	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	b.mu.RUnlock()

	if dropped > 0 {
		b.mu.Lock()
		b.dropped += dropped
		b.mu.Unlock()
		logger.Log.WithFields(logrus.Fields{
			"component": "broadcaster",
			"dropped":   dropped,
			"type":      msg.Type,
		}).Warn("Broadcast dropped for full outboxes")
	}
}

// HasSubscriber проверяет, подключен ли игрок.
func (b *Broadcaster) HasSubscriber(entityID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[entityID]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped возвращает число сообщений, потерянных из-за переполнения.
func (b *Broadcaster) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
