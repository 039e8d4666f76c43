package chat

import (
	"strings"
)

// Classification is the result of running the sender rules over a raw message.
type Classification struct {
	Origin      Origin
	DisplayName string
	// Rule names the rule that matched, for diagnostics.
	Rule string
	// Uncertain is set when no rule matched.
	Uncertain bool
}

// Rule is one predicate/result pair of the sender classifier.
type Rule struct {
	Name   string
	Match  func(raw RawMessage, localUserID string) bool
	Origin Origin
}

// Rule names, in evaluation order.
const (
	RuleSenderUser    = "sender_user"
	RuleSenderAgent   = "sender_agent"
	RuleLocalUserID   = "local_user_id"
	RuleAgentSentinel = "agent_response_sentinel"
	RuleNoMatch       = "no_match"
)

// Authoritative fields come first so heuristic ones never override them.
var rules = []Rule{
	{
		Name:   RuleSenderUser,
		Match:  func(raw RawMessage, _ string) bool { return senderIs(raw, SenderUser) },
		Origin: OriginUser,
	},
	{
		Name:   RuleSenderAgent,
		Match:  func(raw RawMessage, _ string) bool { return senderIs(raw, SenderAgent) },
		Origin: OriginAgent,
	},
	{
		Name: RuleLocalUserID,
		Match: func(raw RawMessage, localUserID string) bool {
			return localUserID != "" && strings.EqualFold(strings.TrimSpace(raw.UserID), localUserID)
		},
		Origin: OriginUser,
	},
	{
		Name:   RuleAgentSentinel,
		Match:  func(raw RawMessage, _ string) bool { return raw.UserID == AgentResponseUserID },
		Origin: OriginAgent,
	},
}

// Rules returns the sender rules in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func senderIs(raw RawMessage, s Sender) bool {
	return strings.EqualFold(strings.TrimSpace(string(raw.Sender)), string(s))
}

// Classify decides who sent raw. The first matching rule wins; when none
// matches the result is UNKNOWN and flagged Uncertain, never coerced to USER
// or AGENT.
func Classify(raw RawMessage, localUserID, activeAgentName string, labels Labels) Classification {
	labels = labels.WithDefaults()
	localUserID = strings.TrimSpace(localUserID)

	for _, r := range rules {
		if !r.Match(raw, localUserID) {
			continue
		}
		return Classification{
			Origin:      r.Origin,
			DisplayName: displayName(r.Origin, activeAgentName, labels),
			Rule:        r.Name,
		}
	}

	return Classification{
		Origin:      OriginUnknown,
		DisplayName: labels.Unknown,
		Rule:        RuleNoMatch,
		Uncertain:   true,
	}
}

func displayName(o Origin, activeAgentName string, labels Labels) string {
	switch o {
	case OriginUser:
		return labels.User
	case OriginAgent:
		if name := strings.TrimSpace(activeAgentName); name != "" {
			return name
		}
		return labels.Agent
	case OriginSystem:
		return labels.System
	default:
		return labels.Unknown
	}
}
