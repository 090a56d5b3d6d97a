package mailthread

import (
	"sort"
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
)

// Thread is a reply chain reconstructed from a flat mail list.
type Thread struct {
	Subject  string
	ThreadID string
	// Chain runs from the root to the newest reply.
	Chain []crm.MailMessage
	// LastActivity is the newest sent/received time of any message
	// sharing ThreadID, zero if none parse.
	LastActivity time.Time
}

// Last returns the newest message of the chain.
func (t Thread) Last() crm.MailMessage {
	return t.Chain[len(t.Chain)-1]
}

// BuildThreads groups one client's mail into root-to-leaf reply chains,
// most recently active first.
//
// Chains follow in_reply_to links from every root. When several messages
// reply to the same parent, the earliest one (sent_at, then received_at;
// unparseable times count as oldest) continues the chain, with input
// order breaking ties. Threads with equal activity keep input order.
func BuildThreads(mails []crm.MailMessage) []Thread {
	children := make(map[string][]int, len(mails))
	for i := range mails {
		if mails[i].IsRoot() {
			continue
		}
		parent := mails[i].ParentID()
		children[parent] = append(children[parent], i)
	}
	for parent, idx := range children {
		sort.SliceStable(idx, func(a, b int) bool {
			return mails[idx[a]].Time().Before(mails[idx[b]].Time())
		})
		children[parent] = idx
	}

	latest := latestByThread(mails)

	threads := make([]Thread, 0)
	for i := range mails {
		root := mails[i]
		if !root.IsRoot() {
			continue
		}
		threads = append(threads, Thread{
			Subject:      root.Subject,
			ThreadID:     root.ThreadID,
			Chain:        walkChain(mails, children, i),
			LastActivity: latest[root.ThreadID],
		})
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastActivity.After(threads[j].LastActivity)
	})
	return threads
}

func walkChain(mails []crm.MailMessage, children map[string][]int, root int) []crm.MailMessage {
	chain := []crm.MailMessage{mails[root]}
	seen := map[int]struct{}{root: {}}
	cur := root
	for {
		id := mails[cur].MessageID
		if id == "" {
			break
		}
		next := -1
		for _, c := range children[id] {
			if _, ok := seen[c]; !ok {
				next = c
				break
			}
		}
		if next < 0 {
			break
		}
		seen[next] = struct{}{}
		chain = append(chain, mails[next])
		cur = next
	}
	return chain
}

func latestByThread(mails []crm.MailMessage) map[string]time.Time {
	latest := make(map[string]time.Time, len(mails))
	for _, m := range mails {
		t := m.Time()
		if cur, ok := latest[m.ThreadID]; !ok || t.After(cur) {
			latest[m.ThreadID] = t
		}
	}
	return latest
}
