package ledger

import "sync"

// lockTable hands out one mutex per account number. Holding an
// account's mutex makes the read-validate-write-append cycle of a
// balance mutation indivisible relative to every other operation on the
// same account in this process, including deletion.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) acquire(accountNumber string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[accountNumber]
	if !ok {
		l = &sync.Mutex{}
		t.locks[accountNumber] = l
	}
	return l
}

// release drops the account's mutex from the table so deleted accounts
// do not pin an entry for the process lifetime. A goroutine still
// blocked on the old mutex proceeds harmlessly: the account is gone, so
// its next read fails, and any recreate is guarded by the balance swap.
func (t *lockTable) release(accountNumber string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.locks, accountNumber)
}

// orderedPair returns the locks for two accounts in account-number
// order, so every caller acquires them in the same sequence and two
// opposing transfers cannot deadlock.
func (t *lockTable) orderedPair(a, b string) (first, second *sync.Mutex) {
	if a > b {
		a, b = b, a
	}
	return t.acquire(a), t.acquire(b)
}
