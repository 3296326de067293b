package ledger

const DefaultPageSize = 5

// Pager keeps an independent current page for every ticket-type group.
type Pager struct {
	size  int
	pages map[string]int
}

func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{size: size, pages: make(map[string]int)}
}

func (p *Pager) Size() int {
	return p.size
}

// TotalPages is ceil(count/size); zero entries means zero pages.
func (p *Pager) TotalPages(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + p.size - 1) / p.size
}

// Current returns the page of group, starting at 1.
func (p *Pager) Current(group string) int {
	if n, ok := p.pages[group]; ok {
		return n
	}
	return 1
}

// Next advances group unless it already sits on its last page.
func (p *Pager) Next(group string, count int) int {
	cur := p.clamp(group, count)
	if cur < p.TotalPages(count) {
		cur++
	}
	p.pages[group] = cur
	return cur
}

// Previous steps group back unless it is on page 1.
func (p *Pager) Previous(group string) int {
	cur := p.Current(group)
	if cur > 1 {
		cur--
	}
	p.pages[group] = cur
	return cur
}

// Page slices entries to the group's current page. A page beyond the end,
// left behind after a filter change shrank the group, is pulled back to the
// last page.
func (p *Pager) Page(group string, entries []Entry) []Entry {
	cur := p.clamp(group, len(entries))
	p.pages[group] = cur
	start := (cur - 1) * p.size
	if start >= len(entries) {
		return []Entry{}
	}
	end := start + p.size
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

func (p *Pager) clamp(group string, count int) int {
	cur := p.Current(group)
	if last := p.TotalPages(count); cur > last {
		cur = last
	}
	if cur < 1 {
		cur = 1
	}
	return cur
}

func (p *Pager) Reset() {
	p.pages = make(map[string]int)
}
