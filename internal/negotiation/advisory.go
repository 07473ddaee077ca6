package negotiation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AdvisoryGenerator drafts candidate responses outside the engine, typically
// an LLM adapter. Whatever it returns is parsed and revalidated by
// ParseAdvisoryResponse before the engine acts on it; the engine never
// trusts the generator.
type AdvisoryGenerator interface {
	Generate(ctx context.Context, instruction string) ([]byte, error)
}

// responseShape documents the exact JSON the advisory generator must return.
const responseShape = `{
  "request_id": "string",
  "round": 1,
  "decision": "ACCEPT | COUNTER | REJECT",
  "offer": { ... present only when decision is COUNTER ... },
  "reason": "optional free text"
}`

const offerShape = `{
  "request_id": "string",
  "round": 1,
  "from_party": "buyer | provider",
  "price": 0.0,
  "proposed_slots": [{"day": "Mon", "start": "09:00", "end": "10:00"}],
  "duration_minutes": 60,
  "includes_parts": false,
  "notes": "optional",
  "line_items": [{"label": "labor", "amount": 0.0}]
}`

// BuyerInstruction renders the textual instruction for a buyer-side advisory
// generator, embedding the constraints from init and the schemas the reply
// must honor.
func BuyerInstruction(init NegotiationInit, lastOffer *Offer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are BUYER. Negotiate strictly within these constraints:\n")
	fmt.Fprintf(&b, "- Budget: min=%.2f, target=%.2f, max=%.2f %s.\n",
		init.Budget.Min, init.Budget.Target, init.Budget.Max, init.Currency)
	fmt.Fprintf(&b, "- Must finish by: %s.\n", init.Window.LatestCompletion.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- Availability: %s.\n", marshalSlots(init.WeekAvailability))
	fmt.Fprintf(&b, "- Max rounds: %d.\n\n", init.MaxRounds)
	writeSchemaRules(&b)
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Prefer feasible overlapping times from Availability.\n")
	b.WriteString("- Keep tone concise. No prose outside JSON.\n")
	b.WriteString("- Never exceed max budget.\n")
	b.WriteString("- Accept when the offer meets constraints and is near target.\n")
	writeLastOffer(&b, lastOffer)
	return strings.TrimSpace(b.String())
}

// ProviderInstruction is the provider-side counterpart of BuyerInstruction.
func ProviderInstruction(init NegotiationInit, providerAvailability []DaySlot, providerFloor float64, lastOffer *Offer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are PROVIDER. Your minimum acceptable price is %.2f %s.\n",
		providerFloor, init.Currency)
	fmt.Fprintf(&b, "Your availability: %s.\n", marshalSlots(providerAvailability))
	fmt.Fprintf(&b, "Job must finish by %s.\n", init.Window.LatestCompletion.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "Max rounds: %d.\n\n", init.MaxRounds)
	writeSchemaRules(&b)
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Never go below your minimum price.\n")
	b.WriteString("- Propose concrete slots that overlap with buyer availability.\n")
	b.WriteString("- Keep concessions per round reasonable; keep within buyer's max.\n")
	b.WriteString("- Accept when price >= min and constraints are satisfied.\n")
	writeLastOffer(&b, lastOffer)
	return strings.TrimSpace(b.String())
}

func writeSchemaRules(b *strings.Builder) {
	b.WriteString("You MUST return JSON ONLY, shaped exactly as this Response schema:\n")
	b.WriteString(responseShape)
	b.WriteString("\n\nIf you COUNTER, the offer field MUST match this Offer schema:\n")
	b.WriteString(offerShape)
	b.WriteString("\n")
}

func writeLastOffer(b *strings.Builder, lastOffer *Offer) {
	if lastOffer == nil {
		return
	}
	raw, err := json.Marshal(lastOffer)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "\nLast offer:\n%s\n", raw)
}

func marshalSlots(slots []DaySlot) string {
	raw, err := json.Marshal(slots)
	if err != nil || len(slots) == 0 {
		return "[]"
	}
	return string(raw)
}

// ParseAdvisoryResponse strictly decodes an advisory payload into a Response
// for the expected round of the given negotiation. Unknown fields, schema
// violations, wrong request ids and wrong rounds are all SchemaErrors: the
// payload is discarded for this round, never repaired. The caller may
// re-invoke the generator; the engine does not retry.
func ParseAdvisoryResponse(payload []byte, init NegotiationInit, expectedRound int) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return Response{}, schemaErr(err, "not valid Response JSON")
	}
	if dec.More() {
		return Response{}, schemaErr(nil, "trailing data after Response")
	}
	if err := resp.Validate(); err != nil {
		return Response{}, schemaErr(err, "schema violation")
	}
	if resp.RequestID != init.RequestID {
		return Response{}, schemaErr(nil, "request id %q does not match negotiation %q", resp.RequestID, init.RequestID)
	}
	if resp.Round != expectedRound {
		return Response{}, schemaErr(nil, "round %d does not match expected %d", resp.Round, expectedRound)
	}
	if resp.Decision == DecisionCounter {
		offer := resp.Offer
		if offer.RequestID != init.RequestID {
			return Response{}, schemaErr(nil, "counter offer request id %q does not match negotiation %q", offer.RequestID, init.RequestID)
		}
	}
	return resp, nil
}
