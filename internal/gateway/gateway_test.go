package gateway

import (
	"context"
	"errors"
	"testing"

	"starknet-pilot/internal/starknet"
	"starknet-pilot/internal/starknet/stub"
)

func TestVault_GetBalance(t *testing.T) {
	client := stub.NewClient()
	client.CallResults["0xvault/get_balance"] = []string{"0x2a"}

	vault := NewVault(client, "0xvault")
	balance, err := vault.GetBalance(context.Background(), "0xuser")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance == nil || balance.Int64() != 42 {
		t.Errorf("expected 42, got %v", balance)
	}
}

func TestVault_GetBalance_AbsentIsNil(t *testing.T) {
	vault := NewVault(stub.NewClient(), "0xvault")
	balance, err := vault.GetBalance(context.Background(), "0xuser")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != nil {
		t.Errorf("expected nil balance, got %v", balance)
	}
}

func TestVault_GetBalance_NodeTroubleIsNil(t *testing.T) {
	client := stub.NewClient()
	client.CallErr = &starknet.RPCError{Kind: starknet.ErrKindUnreachable, Message: "timeout"}

	vault := NewVault(client, "0xvault")
	balance, err := vault.GetBalance(context.Background(), "0xuser")
	if err != nil {
		t.Fatalf("expected node trouble to read as absent, got %v", err)
	}
	if balance != nil {
		t.Errorf("expected nil balance, got %v", balance)
	}
}

func TestVault_Deposit_RequiresSigner(t *testing.T) {
	vault := NewVault(stub.NewClient(), "0xvault")
	_, err := vault.Deposit(context.Background(), 100, nil)
	if !errors.Is(err, starknet.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSessionKey_IsValid(t *testing.T) {
	client := stub.NewClient()
	client.CallResults["0xsess/is_valid"] = []string{"0x1"}

	g := NewSessionKey(client, "0xsess")
	valid, err := g.IsValid(context.Background(), "key-handle")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !valid {
		t.Error("expected valid key")
	}
}

func TestSessionKey_IsValid_NodeTroubleIsInvalid(t *testing.T) {
	client := stub.NewClient()
	client.CallErr = &starknet.RPCError{Kind: starknet.ErrKindProtocol, Message: "bad envelope"}

	g := NewSessionKey(client, "0xsess")
	valid, err := g.IsValid(context.Background(), "key-handle")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if valid {
		t.Error("expected invalid on node trouble")
	}
}

func TestSessionKey_GetPermissions_Absent(t *testing.T) {
	g := NewSessionKey(stub.NewClient(), "0xsess")
	scope, err := g.GetPermissions(context.Background(), "key-handle")
	if err != nil {
		t.Fatalf("GetPermissions: %v", err)
	}
	if scope != nil {
		t.Errorf("expected nil scope, got %v", *scope)
	}
}

func TestPositions_GetPosition(t *testing.T) {
	client := stub.NewClient()
	client.CallResults["0xpos/get_position"] = []string{"0xowner", "0xpool", "0x64", "0x708", "0x898"}

	g := NewPositions(client, "0xpos")
	pos, err := g.GetPosition(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos == nil {
		t.Fatal("expected position")
	}
	if pos.Owner != "0xowner" || pos.Amount != 100 || pos.MinPrice != 1800 || pos.MaxPrice != 2200 {
		t.Errorf("unexpected position %+v", pos)
	}
}

func TestPositions_GetPosition_ShortDataIsNil(t *testing.T) {
	client := stub.NewClient()
	client.CallResults["0xpos/get_position"] = []string{"0xowner", "0xpool"}

	g := NewPositions(client, "0xpos")
	pos, err := g.GetPosition(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos != nil {
		t.Errorf("expected nil for short data, got %+v", pos)
	}
}

func TestRebalance_ExecuteRebalance_Calldata(t *testing.T) {
	client := stub.NewClient()
	client.InvokeReceipt = &starknet.TxReceipt{TxHash: "0xfeed"}

	g := NewRebalance(client, "0xreb")
	receipt, err := g.ExecuteRebalance(context.Background(), 7, 1850, 2150, "0xproof", fakeSigner{})
	if err != nil {
		t.Fatalf("ExecuteRebalance: %v", err)
	}
	if receipt.TxHash != "0xfeed" {
		t.Errorf("unexpected tx hash %s", receipt.TxHash)
	}

	if client.LastInvoke == nil {
		t.Fatal("expected invoke recorded")
	}
	cd := client.LastInvoke.Calldata
	if len(cd) != 4 {
		t.Fatalf("expected 4 calldata felts, got %d", len(cd))
	}
	if cd[0] != "0x7" || cd[1] != "0x73a" || cd[2] != "0x866" || cd[3] != "0xproof" {
		t.Errorf("unexpected calldata %v", cd)
	}
}

// fakeSigner satisfies signer.Signer for invoke-path tests.
type fakeSigner struct{}

func (fakeSigner) AccountAddress() string { return "0xacc" }

func (fakeSigner) Sign(_ context.Context, _ []byte) ([]byte, error) {
	return []byte{0x1}, nil
}
