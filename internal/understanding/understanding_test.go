package understanding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentCommitment(t *testing.T) {
	res := Analyze("I will pay the premium next week.")

	assert.True(t, res.ObligationDetected)
	require.NotNil(t, res.FollowUpDate)
	assert.Equal(t, "next week", *res.FollowUpDate)
	assert.Contains(t, res.Intents, "payment_commitment")
}

func TestIntentsIndependent(t *testing.T) {
	res := Analyze("I want to invest in a mutual fund, but I also have a problem with my last bill. Please call me back.")

	assert.Contains(t, res.Intents, "advisory_discussion")
	assert.Contains(t, res.Intents, "complaint")
	assert.Contains(t, res.Intents, "payment_inquiry")
	assert.Contains(t, res.Intents, "follow_up_required")
}

func TestEntityExtraction(t *testing.T) {
	res := Analyze("A SIP of ₹5,000 monthly at 12% for 5 years, starting next Monday.")

	assert.Contains(t, res.Entities.Amounts, "₹5,000")
	assert.Contains(t, res.Entities.Rates, "12%")
	assert.Contains(t, res.Entities.Tenures, "5 years")
	assert.Contains(t, res.Entities.Dates, "Monday")
	assert.Contains(t, res.Entities.Products, "sip")
}

func TestProductKeywords(t *testing.T) {
	res := Analyze("We compared the insurance policy against a personal loan and a credit card.")

	assert.Contains(t, res.Entities.Products, "insurance")
	assert.Contains(t, res.Entities.Products, "policy")
	assert.Contains(t, res.Entities.Products, "loan")
	assert.Contains(t, res.Entities.Products, "credit card")
}

func TestFollowUpFirstMatchWins(t *testing.T) {
	// "next week" appears later in the text but earlier in the rule table.
	res := Analyze("Call me tomorrow, or at worst next week.")
	require.NotNil(t, res.FollowUpDate)
	assert.Equal(t, "next week", *res.FollowUpDate)
}

func TestEmotionStressedByKeyword(t *testing.T) {
	res := Analyze("I am really frustrated with this service.")
	assert.Equal(t, "Stressed", res.Emotion)
}

func TestEmotionStressedByUrgencyPlusInterruption(t *testing.T) {
	res := Analyze("This is urgent, and you keep interrupting me.")
	assert.Equal(t, "Stressed", res.Emotion)
}

func TestEmotionNeutralOnUrgencyAlone(t *testing.T) {
	res := Analyze("Please handle this immediately.")
	assert.Equal(t, "Neutral", res.Emotion)
}

func TestEmotionCalmWithoutSignals(t *testing.T) {
	res := Analyze("Thanks for the update about my portfolio.")
	assert.Equal(t, "Calm", res.Emotion)
}

func TestRegulatoryCoverage(t *testing.T) {
	res := Analyze("This call is recorded. Mutual fund investments are subject to market risk.")

	assert.Contains(t, res.RegulatoryPhrases.Present, "Call recording disclosure")
	assert.Contains(t, res.RegulatoryPhrases.Present, "Market risk disclaimer")
	assert.Contains(t, res.RegulatoryPhrases.Missing, "Not financial advice disclaimer")
}

func TestEmptyTranscript(t *testing.T) {
	res := Analyze("")

	assert.Empty(t, res.Intents)
	assert.Empty(t, res.Entities.Amounts)
	assert.False(t, res.ObligationDetected)
	assert.Nil(t, res.FollowUpDate)
	assert.Equal(t, "Calm", res.Emotion)
	assert.Len(t, res.RegulatoryPhrases.Missing, 3)
}
