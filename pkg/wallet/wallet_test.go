package wallet

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Well-known development mnemonic and its first account.
const (
	devMnemonic = "test test test test test test test test test test test junk"
	devKey      = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var devAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func TestNewMnemonic(t *testing.T) {
	for _, bits := range []int{128, 256} {
		m, err := NewMnemonic(bits)
		if err != nil {
			t.Fatalf("generate %d bit mnemonic: %v", bits, err)
		}
		if !ValidMnemonic(m) {
			t.Errorf("generated mnemonic is invalid: %s", m)
		}
	}
	if ValidMnemonic("abandon abandon abandon") {
		t.Error("short phrase accepted")
	}
}

func TestSeedVector(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	want := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

	seed, err := Seed(mnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(seed); got != want {
		t.Errorf("seed mismatch\n got %s\nwant %s", got, want)
	}
}

func TestParsePath(t *testing.T) {
	idx, err := ParsePath("m/44'/60'/0'/0/7")
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0x8000002c, 0x8000003c, 0x80000000, 0, 7}
	if len(idx) != len(want) {
		t.Fatalf("got %v", idx)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Errorf("index %d: got %x want %x", i, idx[i], want[i])
		}
	}

	if _, err := ParsePath("m/44'/x"); err == nil {
		t.Error("bad segment accepted")
	}
	if idx, err := ParsePath("m"); err != nil || len(idx) != 0 {
		t.Errorf("bare master path: %v %v", idx, err)
	}
}

func TestFromMnemonic(t *testing.T) {
	s, err := FromMnemonic(devMnemonic, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if s.Address() != devAddress {
		t.Errorf("got %s want %s", s.Address().Hex(), devAddress.Hex())
	}

	other, err := FromMnemonic(devMnemonic, "", "m/44'/60'/0'/0/1")
	if err != nil {
		t.Fatal(err)
	}
	if other.Address() == devAddress {
		t.Error("different paths produced the same key")
	}
}

func TestSignModes(t *testing.T) {
	ctx := context.Background()
	digest := crypto.Keccak256([]byte("safe tx"))

	plain, err := FromHex("0x" + devKey)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := plain.Sign(ctx, digest)
	if err != nil {
		t.Fatal(err)
	}
	if v := sig[64]; v != 27 && v != 28 {
		t.Fatalf("unexpected v %d", v)
	}
	rsv := append([]byte{}, sig...)
	rsv[64] -= 27
	pub, err := crypto.SigToPub(digest, rsv)
	if err != nil || crypto.PubkeyToAddress(*pub) != devAddress {
		t.Fatalf("plain signature does not recover to owner: %v", err)
	}

	eth, _ := FromHex(devKey, EthSign())
	sig, err = eth.Sign(ctx, digest)
	if err != nil {
		t.Fatal(err)
	}
	if v := sig[64]; v != 31 && v != 32 {
		t.Fatalf("unexpected eth_sign v %d", v)
	}

	if _, err := plain.Sign(ctx, []byte{1, 2, 3}); err == nil {
		t.Error("short digest accepted")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	password := "secure-password"
	dir := t.TempDir()

	for name, secret := range map[string]string{"mnemonic": devMnemonic, "key": devKey} {
		k, err := Encrypt(secret, password, LightScryptN)
		if err != nil {
			t.Fatalf("%s: encrypt: %v", name, err)
		}
		if k.Crypto.Cipher != "aes-256-gcm" {
			t.Errorf("%s: cipher %s", name, k.Crypto.Cipher)
		}

		file := filepath.Join(dir, name+".json")
		if err := k.SaveToFile(file); err != nil {
			t.Fatal(err)
		}
		s, err := FromKeystore(file, password, "")
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if s.Address() != devAddress {
			t.Errorf("%s: got %s", name, s.Address().Hex())
		}

		if _, err := FromKeystore(file, "wrong-password", ""); err != ErrDecrypt {
			t.Errorf("%s: wrong password gave %v", name, err)
		}
	}
}
