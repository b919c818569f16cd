package api

import (
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"
)

func TestEntryField(t *testing.T) {
	as := testify.New(t)

	entry := &Entry{
		ID:      "e1",
		Payload: []byte(`{"amount":"1500","vendor":{"name":"Acme"}}`),
	}

	v, ok := entry.Field("amount")
	as.True(ok)
	as.Equal("1500", v)

	// Dotted IDs address nested payload values
	v, ok = entry.Field("vendor.name")
	as.True(ok)
	as.Equal("Acme", v)

	_, ok = entry.Field("missing")
	as.False(ok)

	var nilEntry *Entry
	_, ok = nilEntry.Field("amount")
	as.False(ok)
}

func TestFormField(t *testing.T) {
	as := testify.New(t)

	form := &Form{
		ID: "f1",
		Fields: []*Field{
			{ID: "amount", Type: FieldNumber},
		},
	}

	f := form.Field("amount")
	as.NotNil(f)
	as.Equal(FieldNumber, f.Type)
	as.Nil(form.Field("missing"))

	var nilForm *Form
	as.Nil(nilForm.Field("amount"))
}

func TestMetaTimestamp(t *testing.T) {
	as := testify.New(t)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := Meta{
		"good":    FormatTimestamp(at),
		"garbage": "not-a-number",
		"blank":   "",
	}

	got, ok := m.Timestamp("good")
	as.True(ok)
	as.Equal(at, got)

	_, ok = m.Timestamp("garbage")
	as.False(ok)
	_, ok = m.Timestamp("blank")
	as.False(ok)
	_, ok = m.Timestamp("absent")
	as.False(ok)
}

func TestSanitizeID(t *testing.T) {
	as := testify.New(t)

	as.Equal(FormID("expense-report"), SanitizeID(FormID("Expense Report")))
	as.Equal(StepID("step_1.2-final"), SanitizeID(StepID("Step_1.2-Final")))
	as.Equal(FormID("qa"), SanitizeID(FormID("Q&A!")))
	as.Equal(FormID("padded"), SanitizeID(FormID("  Padded  ")))
}

func TestStepValidate(t *testing.T) {
	as := testify.New(t)

	step := &Step{ID: "s1", Type: "approval", FormID: "f1"}
	as.NoError(step.Validate())

	as.ErrorIs((&Step{Type: "approval", FormID: "f1"}).Validate(),
		ErrStepIDEmpty)
	as.ErrorIs((&Step{ID: "s1", FormID: "f1"}).Validate(),
		ErrStepTypeEmpty)
	as.ErrorIs((&Step{ID: "s1", Type: "approval"}).Validate(),
		ErrStepFormEmpty)

	self := &Step{ID: "s1", Type: "approval", FormID: "f1"}
	self.Settings.NextStepID = "s1"
	as.ErrorIs(self.Validate(), ErrStepNextSelf)

	bad := &Step{ID: "s1", Type: "approval", FormID: "f1"}
	bad.Settings.Expiration = ExpirationSettings{
		Enabled: true, Unit: "fortnights",
	}
	as.ErrorIs(bad.Validate(), ErrInvalidOffsetUnit)

	// Disabled timing settings are not validated
	off := &Step{ID: "s1", Type: "approval", FormID: "f1"}
	off.Settings.Schedule = ScheduleSettings{Type: "bogus"}
	as.NoError(off.Validate())

	badMode := &Step{ID: "s1", Type: "approval", FormID: "f1"}
	badMode.Settings.Assignment.Mode = "volunteer"
	as.ErrorIs(badMode.Validate(), ErrInvalidAssignMode)
}
