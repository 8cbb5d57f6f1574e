package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"safe-core/pkg/config"
	"safe-core/pkg/wallet"
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "Manage the encrypted signer keystore",
}

var keystoreNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a mnemonic and store it encrypted",
	Long: `new generates a BIP-39 mnemonic, encrypts it with a password and writes it
to signer.keystore_path (or --out). The owner address at the configured
derivation path is printed so it can be added to a Safe.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = config.Global.Signer.KeystorePath
		}
		bits, _ := cmd.Flags().GetInt("bits")
		light, _ := cmd.Flags().GetBool("light")
		show, _ := cmd.Flags().GetBool("show-mnemonic")

		mnemonic, err := wallet.NewMnemonic(bits)
		if err != nil {
			return err
		}
		signer, err := wallet.FromMnemonic(mnemonic, "", config.Global.Signer.DerivationPath)
		if err != nil {
			return err
		}

		password, err := readPassword("New password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Repeat password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		n := wallet.StandardScryptN
		if light {
			n = wallet.LightScryptN
		}
		ks, err := wallet.Encrypt(mnemonic, password, n)
		if err != nil {
			return err
		}
		if err := ks.SaveToFile(out); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "keystore: %s\n", out)
		fmt.Fprintf(w, "address:  %s\n", signer.Address().Hex())
		if show {
			fmt.Fprintf(w, "mnemonic: %s\n", mnemonic)
		}
		return nil
	},
}

var keystoreAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the owner address of the configured signer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, err := loadSigner()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signer.Address().Hex())
		return nil
	},
}

func init() {
	keystoreNewCmd.Flags().String("out", "", "keystore file (default signer.keystore_path)")
	keystoreNewCmd.Flags().Int("bits", 256, "mnemonic entropy: 128 or 256")
	keystoreNewCmd.Flags().Bool("light", false, "use light scrypt parameters")
	keystoreNewCmd.Flags().Bool("show-mnemonic", false, "print the mnemonic once for backup")

	keystoreCmd.AddCommand(keystoreNewCmd, keystoreAddressCmd)
	rootCmd.AddCommand(keystoreCmd)
}
