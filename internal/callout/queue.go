package callout

import "time"

// ID - непрозрачный идентификатор отложенного вызова.
type ID uint64

// callItem обертка для элемента очереди приоритетов
type callItem struct {
	id        ID
	due       time.Time
	seq       uint64 // порядок постановки, разрешает равные due
	fn        func()
	index     int // индекс в куче (нужен для heap.Remove)
	cancelled bool
}

// callHeap реализует heap.Interface. Чем раньше due, тем раньше вызов.
type callHeap []*callItem

func (h callHeap) Len() int { return len(h) }

func (h callHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h callHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *callHeap) Push(x interface{}) {
	item := x.(*callItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *callHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // избегаем утечки памяти
	item.index = -1 // элемент больше не в куче
	*h = old[0 : n-1]
	return item
}
