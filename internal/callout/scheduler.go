package callout

import (
	"container/heap"
	"time"

	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Queue хранит одноразовые отложенные вызовы и исполняет их из игрового цикла.
// Сама по себе очередь ничего не запускает: цикл вызывает RunDue.
// Не потокобезопасна.
type Queue struct {
	now    func() time.Time
	calls  callHeap
	byID   map[ID]*callItem
	nextID ID
	seq    uint64
}

// NewQueue создает очередь. now - источник времени (nil = time.Now).
func NewQueue(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{
		now:   now,
		calls: make(callHeap, 0),
		byID:  make(map[ID]*callItem),
	}
}

// Schedule ставит fn на исполнение через delay. Отрицательная задержка считается нулевой.
func (q *Queue) Schedule(delay time.Duration, fn func()) ID {
	if delay < 0 {
		delay = 0
	}
	q.nextID++
	q.seq++
	item := &callItem{
		id:  q.nextID,
		due: q.now().Add(delay),
		seq: q.seq,
		fn:  fn,
	}
	heap.Push(&q.calls, item)
	q.byID[item.id] = item
	return item.id
}

// Cancel отменяет ожидающий вызов. Возвращает false, если вызова уже нет.
func (q *Queue) Cancel(id ID) bool {
	item, ok := q.byID[id]
	if !ok {
		return false
	}
	delete(q.byID, id)
	item.cancelled = true
	if item.index >= 0 {
		heap.Remove(&q.calls, item.index)
	}
	return true
}

// Pending проверяет, ожидает ли вызов исполнения.
func (q *Queue) Pending(id ID) bool {
	_, ok := q.byID[id]
	return ok
}

// Len возвращает число ожидающих вызовов.
func (q *Queue) Len() int { return len(q.byID) }

// Next возвращает время ближайшего вызова.
func (q *Queue) Next() (time.Time, bool) {
	if q.calls.Len() == 0 {
		return time.Time{}, false
	}
	return q.calls[0].due, true
}

// RunDue исполняет все вызовы со сроком <= now в порядке срока.
// Вызовы, поставленные во время прохода, исполняются на следующих проходах.
// Паника в одном вызове логируется и не мешает остальным.
func (q *Queue) RunDue(now time.Time) int {
	var batch []*callItem
	for q.calls.Len() > 0 && !q.calls[0].due.After(now) {
		batch = append(batch, heap.Pop(&q.calls).(*callItem))
	}

	fired := 0
	for _, item := range batch {
		if item.cancelled {
			continue // отменили предыдущим вызовом из этой же пачки
		}
		delete(q.byID, item.id)
		if err := safeRun(item.fn); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"component": "callout",
				"call_id":   item.id,
			}).WithError(err).Error("Call-out failed")
		}
		fired++
	}
	return fired
}

func safeRun(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
