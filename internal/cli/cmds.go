package cli

func regCommands() {
	//Tx
	txCmd.AddCommand(tx_statusCmd)
	txCmd.AddCommand(tx_dataCmd)

	//Wallet
	walletCmd.AddCommand(wallet_addressCmd)
	walletCmd.AddCommand(wallet_keygenCmd)

	//Root
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(infoCmd)
}
