package db

func ShopeeCallbacksTable(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []string{
			"code TEXT NOT NULL",
			"shop_id TEXT NOT NULL DEFAULT ''",
		},
	}
}

// TikTokTokensTable keeps the callback columns so a token row can be traced
// back to the authorization that produced it.
func TikTokTokensTable(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []string{
			"code TEXT NOT NULL DEFAULT ''",
			"app_key TEXT NOT NULL DEFAULT ''",
			"shop_region TEXT NOT NULL DEFAULT ''",
			"state TEXT NOT NULL DEFAULT ''",
			"access_token TEXT NOT NULL",
			"refresh_token TEXT NOT NULL DEFAULT ''",
			"access_expire BIGINT NOT NULL DEFAULT 0",
			"refresh_expire BIGINT NOT NULL DEFAULT 0",
		},
	}
}

func ShopeeTokensTable(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []string{
			"code TEXT NOT NULL DEFAULT ''",
			"shop_id TEXT NOT NULL DEFAULT ''",
			"access_token TEXT NOT NULL",
			"refresh_token TEXT NOT NULL DEFAULT ''",
			"expire_in BIGINT NOT NULL DEFAULT 0",
			"request_id TEXT NOT NULL DEFAULT ''",
		},
	}
}

func ProductsTable(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []string{
			"item_id TEXT NOT NULL UNIQUE",
			"item_name TEXT NOT NULL DEFAULT ''",
			"item_sku TEXT NOT NULL DEFAULT ''",
			"price NUMERIC(15,2) NOT NULL DEFAULT 0",
			"stock INTEGER NOT NULL DEFAULT 0",
			"currency TEXT NOT NULL DEFAULT 'IDR'",
			"status TEXT NOT NULL DEFAULT 'active'",
			"update_time TIMESTAMP NOT NULL DEFAULT NOW()",
		},
		CreatedColumn: "create_time",
	}
}

// TikTokShopsTable holds one row per authorized shop, keyed by the TikTok
// shop id.
func TikTokShopsTable(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []string{
			"shop_id TEXT NOT NULL UNIQUE",
			"code TEXT NOT NULL DEFAULT ''",
			"name TEXT NOT NULL DEFAULT ''",
			"region TEXT NOT NULL DEFAULT ''",
			"seller_type TEXT NOT NULL DEFAULT ''",
			"cipher TEXT NOT NULL DEFAULT ''",
			"updated_at TIMESTAMP NOT NULL DEFAULT NOW()",
		},
	}
}
