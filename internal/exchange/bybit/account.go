package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// AccountType selects which Bybit account ledger a balance query reads.
type AccountType string

const (
	AccountTypeUnified AccountType = "UNIFIED"
)

// Balance is a single coin's balance within an account ledger.
type Balance struct {
	Coin             string
	WalletBalance    float64
	AvailableToTrade float64
}

// GetAccountBalance fetches the wallet balance for accountType, optionally
// restricted to a subset of coins.
func (c *Client) GetAccountBalance(ctx context.Context, accountType AccountType, coins ...string) ([]Balance, error) {
	params := map[string]interface{}{
		"accountType": string(accountType),
	}
	if len(coins) > 0 {
		coinList := coins[0]
		for _, coin := range coins[1:] {
			coinList += "," + coin
		}
		params["coin"] = coinList
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}
	return parseAccountBalanceResponse(result)
}

// GetTradableBalance returns the amount of coin available for new orders
// under accountType.
func (c *Client) GetTradableBalance(ctx context.Context, accountType AccountType, coin string) (float64, error) {
	balances, err := c.GetAccountBalance(ctx, accountType, coin)
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b.Coin == coin {
			return b.AvailableToTrade, nil
		}
	}
	return 0, fmt.Errorf("coin %s not found in account", coin)
}

func parseAccountBalanceResponse(response interface{}) ([]Balance, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, NewBybitError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var walletResult struct {
		List []struct {
			Coin []struct {
				Coin             string `json:"coin"`
				WalletBalance    string `json:"walletBalance"`
				AvailableToTrade string `json:"availableToTrade"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet result: %w", err)
	}
	if len(walletResult.List) == 0 {
		return nil, fmt.Errorf("no account data found")
	}

	coins := walletResult.List[0].Coin
	balances := make([]Balance, len(coins))
	for i, coin := range coins {
		balances[i] = Balance{
			Coin:             coin.Coin,
			WalletBalance:    parseFloat64(coin.WalletBalance),
			AvailableToTrade: parseFloat64(coin.AvailableToTrade),
		}
	}
	return balances, nil
}
