package cmd

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"safe-core/pkg/config"
	"safe-core/pkg/safeclient"
	"safe-core/pkg/wallet"
)

// loadSigner picks the first configured key source: raw key, mnemonic, then
// keystore. A keystore without a configured password prompts on the TTY.
func loadSigner() (*wallet.KeySigner, error) {
	sc := config.Global.Signer
	var opts []wallet.Option
	if sc.EthSign {
		opts = append(opts, wallet.EthSign())
	}

	switch {
	case sc.PrivateKey != "":
		return wallet.FromHex(sc.PrivateKey, opts...)
	case sc.Mnemonic != "":
		return wallet.FromMnemonic(sc.Mnemonic, "", sc.DerivationPath, opts...)
	case sc.KeystorePath != "":
		password := sc.Password
		if password == "" {
			p, err := readPassword("Keystore password: ")
			if err != nil {
				return nil, err
			}
			password = p
		}
		return wallet.FromKeystore(sc.KeystorePath, password, sc.DerivationPath, opts...)
	default:
		return nil, safeclient.ErrNoSigner
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
