package registry

import "github.com/TwigaDEVs/BitCred/internal/chain"

// AccessControl owns scorer authorization for one registry instance.
// The deploying admin is approved implicitly and cannot be revoked.
type AccessControl struct {
	admin    chain.Address
	approved map[chain.Address]bool
}

func NewAccessControl(admin chain.Address) *AccessControl {
	return &AccessControl{
		admin:    admin,
		approved: map[chain.Address]bool{},
	}
}

func (a *AccessControl) Admin() chain.Address {
	return a.admin
}

func (a *AccessControl) IsAdmin(account chain.Address) bool {
	return account == a.admin
}

func (a *AccessControl) IsApprovedScorer(account chain.Address) bool {
	return account == a.admin || a.approved[account]
}

func (a *AccessControl) setApproved(tx *chain.Tx, account chain.Address, approved bool) {
	prev, existed := a.approved[account]
	tx.OnRevert(func() {
		if existed {
			a.approved[account] = prev
		} else {
			delete(a.approved, account)
		}
	})
	a.approved[account] = approved
}
