package bot

import (
	"context"
	"testing"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
)

func TestHandleNewContractCore(t *testing.T) {
	t.Parallel()

	t.Run("creates and selects", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)

		d.run(b, "/newcontract Harbour View | $250,000 | Bay Homes | 12 345 678 901 | pm@bay.example | | 0%")
		require.Contains(t, d.lastText(), "Contract <b>Harbour View</b> created and selected")

		contracts, err := d.claims.ListContracts(context.Background())
		require.NoError(t, err)
		require.Len(t, contracts, 1)
		c := contracts[0]
		require.Equal(t, "Bay Homes", c.ClientInfo.Name)
		require.Equal(t, "12 345 678 901", c.ABN)
		require.True(t, c.ContractValue.Equal(mustParseDecimal("250000")))
		require.True(t, c.GSTRate.IsZero())

		id, ok := b.activeContract(testChatID)
		require.True(t, ok)
		require.Equal(t, c.ID, id)
	})

	t.Run("default GST comes from settings", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)

		d.run(b, "/newcontract Harbour View | 1000 | Bay Homes")
		d.run(b, "/contract")
		require.Contains(t, d.lastText(), "GST rate: 10%")
	})

	t.Run("missing client shows usage", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)

		d.run(b, "/newcontract Harbour View | 1000")
		require.Contains(t, d.lastText(), "Usage: <code>/newcontract")
	})
}

func TestHandleContractsCore(t *testing.T) {
	t.Parallel()

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)

		d.run(b, "/contracts")
		require.Contains(t, d.lastText(), "No contracts yet")
	})

	t.Run("marks the selected contract", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		seedContract(t, b, d)

		d.run(b, "/contracts")
		text := d.lastText()
		require.Contains(t, text, "1. <b>Riverside Apartments</b> ▶️")
		require.Contains(t, text, "Acme Developments · $100,000.00 · 0% claimed")
	})
}

func TestHandleUseCore(t *testing.T) {
	t.Parallel()
	b, d := setupTestBot(t, nil)
	seedContract(t, b, d)
	d.run(b, "/newcontract Harbour View | 1000 | Bay Homes")

	d.run(b, "/use riverside")
	require.Contains(t, d.lastText(), "Now working on <b>Riverside Apartments</b>")

	d.run(b, "/use Harbour View")
	require.Contains(t, d.lastText(), "Now working on <b>Harbour View</b>")

	d.run(b, "/use 9")
	require.Contains(t, d.lastText(), "No contract matches")

	d.run(b, "/use")
	require.Contains(t, d.lastText(), "Usage")
}

func TestFindContract(t *testing.T) {
	t.Parallel()

	contracts := []appmodels.Contract{
		{ID: "a", Name: "Riverside Apartments"},
		{ID: "b", Name: "River"},
		{ID: "c", Name: "Harbour View"},
	}

	require.Equal(t, "c", findContract(contracts, "3").ID)
	require.Equal(t, "c", findContract(contracts, "#3").ID)
	require.Equal(t, "b", findContract(contracts, "river").ID)
	require.Equal(t, "a", findContract(contracts, "riverside").ID)
	require.Nil(t, findContract(contracts, "4"))
	require.Nil(t, findContract(contracts, "ocean"))
}

func TestCurrentContract(t *testing.T) {
	t.Parallel()

	t.Run("nothing to select", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)

		d.run(b, "/contract")
		require.Equal(t, noActiveContractMsg, d.lastText())
	})

	t.Run("sole contract is auto selected", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		contract := seedContract(t, b, d)
		b.clearActiveContract("")

		d.run(b, "/contract")
		require.Contains(t, d.lastText(), "📁 <b>Riverside Apartments</b>")

		id, ok := b.activeContract(testChatID)
		require.True(t, ok)
		require.Equal(t, contract.ID, id)
	})

	t.Run("stale selection is cleared", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		b.setActiveContract(testChatID, "gone")

		d.run(b, "/contract")
		require.Equal(t, noActiveContractMsg, d.lastText())

		_, ok := b.activeContract(testChatID)
		require.False(t, ok)
	})
}

func TestHandleContractCore(t *testing.T) {
	t.Parallel()
	b, d := setupTestBot(t, nil)
	seedContract(t, b, d)

	d.run(b, "/contract")
	text := d.lastText()
	require.Contains(t, text, "Client: Acme Developments")
	require.Contains(t, text, "Email: pm@acme.example")
	require.Contains(t, text, "Contract value: $100,000.00")
	require.Contains(t, text, "Claims: 0")
	require.Contains(t, text, "1. Site works · $40,000.00")
	require.Contains(t, text, "2. Framing · $60,000.00")
}

func TestHandleEditContractCore(t *testing.T) {
	t.Parallel()
	b, d := setupTestBot(t, nil)
	contract := seedContract(t, b, d)

	d.run(b, "/editcontract Riverside Stage 2 | 120000 | Acme Developments")
	require.Contains(t, d.lastText(), "Contract <b>Riverside Stage 2</b> updated")

	got, err := d.claims.GetContract(context.Background(), contract.ID)
	require.NoError(t, err)
	require.Equal(t, "Riverside Stage 2", got.Name)
	require.True(t, got.ContractValue.Equal(mustParseDecimal("120000")))
	require.Len(t, got.TemplateItems, 2)
}

func TestHandleTemplateItems(t *testing.T) {
	t.Parallel()

	t.Run("add reports the template total", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		seedContract(t, b, d)

		d.run(b, "/additem $5,000 Roofing & gutters")
		text := d.lastText()
		require.Contains(t, text, "Added item 3: Roofing &amp; gutters · $5,000.00")
		require.Contains(t, text, "Template total: $105,000.00 of $100,000.00")
		require.Contains(t, text, "exceed the contract value")
	})

	t.Run("add needs a description", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		seedContract(t, b, d)

		d.run(b, "/additem 5000")
		require.Contains(t, d.lastText(), "Usage")
	})

	t.Run("remove by number", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		contract := seedContract(t, b, d)

		d.run(b, "/delitem 1")
		require.Contains(t, d.lastText(), "Template item 1 removed")

		got, err := d.claims.GetContract(context.Background(), contract.ID)
		require.NoError(t, err)
		require.Len(t, got.TemplateItems, 1)
		require.Equal(t, "Framing", got.TemplateItems[0].Description)
	})

	t.Run("remove out of range", func(t *testing.T) {
		t.Parallel()
		b, d := setupTestBot(t, nil)
		seedContract(t, b, d)

		d.run(b, "/delitem 5")
		require.Contains(t, d.lastText(), "Not found")
	})
}

func TestHandleDeleteContractCore(t *testing.T) {
	t.Parallel()
	b, d := setupTestBot(t, nil)
	contract := seedContract(t, b, d)
	seedClaim(t, d, contract)

	d.run(b, "/delcontract")

	msg := d.mock.LastSentMessage()
	require.NotNil(t, msg)
	require.Contains(t, msg.Text, "Delete <b>Riverside Apartments</b> with its 1 claim(s)")

	kb, ok := msg.ReplyMarkup.(*tgmodels.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Equal(t, callbackDeleteContractPrefix+contract.ID, kb.InlineKeyboard[0][0].CallbackData)
	require.Equal(t, callbackCancel, kb.InlineKeyboard[0][1].CallbackData)

	// Nothing is deleted until confirmed.
	_, err := d.claims.GetContract(context.Background(), contract.ID)
	require.NoError(t, err)
}
