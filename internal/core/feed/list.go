package feed

// list keeps the viewer's own creations ahead of server pages.
// local is newest-first; paged is in server order. IDs are unique across both.
type list[T Item] struct {
	ids   map[uint64]struct{}
	local []Entry[T]
	paged []Entry[T]
}

func newList[T Item]() list[T] {
	return list[T]{ids: make(map[uint64]struct{})}
}

// appendPaged adds a server item after the tail unless its ID is present
func (l *list[T]) appendPaged(item T) bool {
	id := item.ItemID()
	if _, dup := l.ids[id]; dup {
		return false
	}
	l.ids[id] = struct{}{}
	l.paged = append(l.paged, Entry[T]{Item: item})
	return true
}

// prependLocal puts a freshly created item first. If a page already brought
// the same ID in, that copy is moved so the item appears exactly once.
func (l *list[T]) prependLocal(item T) {
	id := item.ItemID()
	if _, dup := l.ids[id]; dup {
		l.remove(id)
	}
	l.ids[id] = struct{}{}
	l.local = append([]Entry[T]{{Item: item, Local: true}}, l.local...)
}

func (l *list[T]) remove(id uint64) {
	for i := range l.local {
		if l.local[i].Item.ItemID() == id {
			l.local = append(l.local[:i], l.local[i+1:]...)
			break
		}
	}
	for i := range l.paged {
		if l.paged[i].Item.ItemID() == id {
			l.paged = append(l.paged[:i], l.paged[i+1:]...)
			break
		}
	}
	delete(l.ids, id)
}

// find returns a pointer to the entry with id. The pointer is only valid
// until the list is next modified.
func (l *list[T]) find(id uint64) *Entry[T] {
	if _, ok := l.ids[id]; !ok {
		return nil
	}
	for i := range l.local {
		if l.local[i].Item.ItemID() == id {
			return &l.local[i]
		}
	}
	for i := range l.paged {
		if l.paged[i].Item.ItemID() == id {
			return &l.paged[i]
		}
	}
	return nil
}

func (l *list[T]) len() int {
	return len(l.local) + len(l.paged)
}

func (l *list[T]) entries() []Entry[T] {
	out := make([]Entry[T], 0, l.len())
	out = append(out, l.local...)
	out = append(out, l.paged...)
	return out
}
