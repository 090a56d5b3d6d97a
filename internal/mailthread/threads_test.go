package mailthread

import (
	"testing"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mail(id, replyTo, thread, sentAt string) crm.MailMessage {
	m := crm.MailMessage{MessageID: id, ThreadID: thread, SentAt: sentAt, Subject: "re: " + thread}
	if replyTo != "" {
		m.InReplyTo = crm.StringPtr(replyTo)
	}
	return m
}

func chainIDs(th Thread) []string {
	out := make([]string, 0, len(th.Chain))
	for _, m := range th.Chain {
		out = append(out, m.MessageID)
	}
	return out
}

func TestBuildThreads_Scenario(t *testing.T) {
	root := mail("m1", "", "t1", "2024-01-01T10:00:00Z")
	root.Subject = "Hi"
	reply := mail("m2", "m1", "t1", "2024-01-01T11:00:00Z")
	reply.Subject = ""

	threads := BuildThreads([]crm.MailMessage{root, reply})
	require.Len(t, threads, 1)
	assert.Equal(t, "Hi", threads[0].Subject)
	assert.Equal(t, "t1", threads[0].ThreadID)
	assert.Equal(t, []string{"m1", "m2"}, chainIDs(threads[0]))
	assert.Equal(t, "m2", threads[0].Last().MessageID)
}

func TestBuildThreads_ChainOrderIgnoresInputOrder(t *testing.T) {
	mails := []crm.MailMessage{
		mail("B", "A", "t", "2024-01-01T12:00:00Z"),
		mail("R", "", "t", "2024-01-01T10:00:00Z"),
		mail("A", "R", "t", "2024-01-01T11:00:00Z"),
	}
	threads := BuildThreads(mails)
	require.Len(t, threads, 1)
	assert.Equal(t, []string{"R", "A", "B"}, chainIDs(threads[0]))
}

func TestBuildThreads_Deterministic(t *testing.T) {
	mails := []crm.MailMessage{
		mail("r1", "", "t1", "2024-01-01T10:00:00Z"),
		mail("a1", "r1", "t1", "2024-01-01T10:30:00Z"),
		mail("r2", "", "t2", "2024-01-02T10:00:00Z"),
	}
	assert.Equal(t, BuildThreads(mails), BuildThreads(mails))
}

func TestBuildThreads_NewestThreadFirst(t *testing.T) {
	mails := []crm.MailMessage{
		mail("r1", "", "t1", "2024-01-01T09:00:00Z"),
		mail("a1", "r1", "t1", "2024-01-01T10:00:00Z"),
		mail("r2", "", "t2", "2024-01-01T11:00:00Z"),
	}
	threads := BuildThreads(mails)
	require.Len(t, threads, 2)
	assert.Equal(t, "t2", threads[0].ThreadID)
	assert.Equal(t, "t1", threads[1].ThreadID)
}

func TestBuildThreads_ActivityCountsMessagesOutsideChain(t *testing.T) {
	// t1's newest message is not reachable from its root but shares the
	// thread id, so it still lifts t1 above t2.
	mails := []crm.MailMessage{
		mail("r1", "", "t1", "2024-01-01T09:00:00Z"),
		mail("orphan", "gone", "t1", "2024-01-03T09:00:00Z"),
		mail("r2", "", "t2", "2024-01-02T09:00:00Z"),
	}
	threads := BuildThreads(mails)
	require.Len(t, threads, 2)
	assert.Equal(t, "t1", threads[0].ThreadID)
	assert.Equal(t, []string{"r1"}, chainIDs(threads[0]))
}

func TestBuildThreads_BranchPicksEarliestReply(t *testing.T) {
	mails := []crm.MailMessage{
		mail("r", "", "t", "2024-01-01T09:00:00Z"),
		mail("late", "r", "t", "2024-01-01T12:00:00Z"),
		mail("early", "r", "t", "2024-01-01T10:00:00Z"),
		mail("early-reply", "early", "t", "2024-01-01T13:00:00Z"),
	}
	threads := BuildThreads(mails)
	require.Len(t, threads, 1)
	assert.Equal(t, []string{"r", "early", "early-reply"}, chainIDs(threads[0]))
}

func TestBuildThreads_BranchTieUsesInputOrder(t *testing.T) {
	mails := []crm.MailMessage{
		mail("r", "", "t", "2024-01-01T09:00:00Z"),
		mail("first", "r", "t", "2024-01-01T10:00:00Z"),
		mail("second", "r", "t", "2024-01-01T10:00:00Z"),
	}
	threads := BuildThreads(mails)
	assert.Equal(t, []string{"r", "first"}, chainIDs(threads[0]))
}

func TestBuildThreads_MalformedTimesSortOldest(t *testing.T) {
	mails := []crm.MailMessage{
		mail("bad", "", "tb", "not a date"),
		mail("none", "", "tn", ""),
		mail("good", "", "tg", "2020-01-01T00:00:00Z"),
	}
	threads := BuildThreads(mails)
	require.Len(t, threads, 3)
	assert.Equal(t, "tg", threads[0].ThreadID)
	// Equal (zero) activity keeps input order.
	assert.Equal(t, "tb", threads[1].ThreadID)
	assert.Equal(t, "tn", threads[2].ThreadID)
}

func TestBuildThreads_ReceivedAtFallback(t *testing.T) {
	inbound := crm.MailMessage{MessageID: "in", ThreadID: "t1", ReceivedAt: "2024-05-01T00:00:00Z"}
	outbound := mail("out", "", "t2", "2024-04-01T00:00:00Z")
	threads := BuildThreads([]crm.MailMessage{outbound, inbound})
	require.Len(t, threads, 2)
	assert.Equal(t, "t1", threads[0].ThreadID)
}

func TestBuildThreads_CycleTerminates(t *testing.T) {
	mails := []crm.MailMessage{
		mail("r", "", "t", "2024-01-01T09:00:00Z"),
		mail("a", "r", "t", "2024-01-01T10:00:00Z"),
		mail("r", "a", "t", "2024-01-01T11:00:00Z"),
	}
	threads := BuildThreads(mails)
	require.Len(t, threads, 1)
	assert.LessOrEqual(t, len(threads[0].Chain), 3)
}

func TestBuildThreads_MissingSubjectIsEmpty(t *testing.T) {
	m := crm.MailMessage{MessageID: "x", ThreadID: "t"}
	threads := BuildThreads([]crm.MailMessage{m})
	require.Len(t, threads, 1)
	assert.Equal(t, "", threads[0].Subject)
}

func TestBuildThreads_Empty(t *testing.T) {
	assert.Empty(t, BuildThreads(nil))
}
