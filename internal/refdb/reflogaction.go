package refdb

import "fmt"

// ReflogActionKind is the closed taxonomy of reflog actions. Go has no
// sum types, so each variant's payload lives in the optional fields
// below, next to the Kind discriminant.
type ReflogActionKind string

const (
	ActionCommit       ReflogActionKind = "commit"
	ActionCommitAmend  ReflogActionKind = "commit_amend"
	ActionMerge        ReflogActionKind = "merge"
	ActionCheckout     ReflogActionKind = "checkout"
	ActionSwitch       ReflogActionKind = "switch"
	ActionReset        ReflogActionKind = "reset"
	ActionPull         ReflogActionKind = "pull"
	ActionClone        ReflogActionKind = "clone"
	ActionRebase       ReflogActionKind = "rebase"
	ActionCherryPick   ReflogActionKind = "cherry_pick"
	ActionRevert       ReflogActionKind = "revert"
	ActionBranchCreate ReflogActionKind = "branch_create"
)

// ReflogAction is a fully-realized reflog action: the Kind discriminant
// plus whichever of the variant-specific fields that Kind uses.
type ReflogAction struct {
	Kind        ReflogActionKind
	Subject     string // Commit, CommitAmend, CherryPick, Revert
	From        string // Merge, Checkout, Switch, Pull, BranchCreate, Rebase(onto)
	To          string // Merge, Checkout, Switch
	FastForward bool   // Merge, Pull
	Mode        string // Reset
}

// String renders the deterministic short line stored in reflog.message and
// shown by `libra log`/UI history cells.
func (a ReflogAction) String() string {
	switch a.Kind {
	case ActionCommit:
		return fmt.Sprintf("commit: %s", a.Subject)
	case ActionCommitAmend:
		return fmt.Sprintf("commit (amend): %s", a.Subject)
	case ActionMerge:
		return fmt.Sprintf("merge %s into %s%s", a.From, a.To, ffSuffix(a.FastForward))
	case ActionCheckout:
		return fmt.Sprintf("checkout: moving from %s to %s", a.From, a.To)
	case ActionSwitch:
		return fmt.Sprintf("switch: moving from %s to %s", a.From, a.To)
	case ActionReset:
		return fmt.Sprintf("reset: moving to %s (%s)", a.To, a.Mode)
	case ActionPull:
		return fmt.Sprintf("pull %s%s", a.From, ffSuffix(a.FastForward))
	case ActionClone:
		return fmt.Sprintf("clone: from %s", a.From)
	case ActionRebase:
		return fmt.Sprintf("rebase: onto %s", a.From)
	case ActionCherryPick:
		return fmt.Sprintf("cherry-pick: %s", a.Subject)
	case ActionRevert:
		return fmt.Sprintf("revert: %s", a.Subject)
	case ActionBranchCreate:
		return fmt.Sprintf("branch: created from %s", a.From)
	default:
		return string(a.Kind)
	}
}

func ffSuffix(ff bool) string {
	if ff {
		return " (fast-forward)"
	}
	return ""
}

func CommitAction(subject string) ReflogAction {
	return ReflogAction{Kind: ActionCommit, Subject: subject}
}

func CommitAmendAction(subject string) ReflogAction {
	return ReflogAction{Kind: ActionCommitAmend, Subject: subject}
}

func MergeAction(from, to string, fastForward bool) ReflogAction {
	return ReflogAction{Kind: ActionMerge, From: from, To: to, FastForward: fastForward}
}

func CheckoutAction(from, to string) ReflogAction {
	return ReflogAction{Kind: ActionCheckout, From: from, To: to}
}

func SwitchAction(from, to string) ReflogAction {
	return ReflogAction{Kind: ActionSwitch, From: from, To: to}
}

func ResetAction(to, mode string) ReflogAction {
	return ReflogAction{Kind: ActionReset, To: to, Mode: mode}
}

func PullAction(from string, fastForward bool) ReflogAction {
	return ReflogAction{Kind: ActionPull, From: from, FastForward: fastForward}
}

func CloneAction(from string) ReflogAction {
	return ReflogAction{Kind: ActionClone, From: from}
}

func RebaseAction(onto string) ReflogAction {
	return ReflogAction{Kind: ActionRebase, From: onto}
}

func CherryPickAction(subject string) ReflogAction {
	return ReflogAction{Kind: ActionCherryPick, Subject: subject}
}

func RevertAction(subject string) ReflogAction {
	return ReflogAction{Kind: ActionRevert, Subject: subject}
}

func BranchCreateAction(from string) ReflogAction {
	return ReflogAction{Kind: ActionBranchCreate, From: from}
}
