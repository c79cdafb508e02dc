package categorizer

// DefaultNativeCategories maps merchant report categories onto common
// ledger categories. Callers may replace or extend it from configuration.
var DefaultNativeCategories = map[string]string{
	"Paperback":                        "Books",
	"Hardcover":                        "Books",
	"Kindle Edition":                   "Books",
	"Audible Audiobook":                "Books",
	"Toy":                              "Toys",
	"Grocery":                          "Groceries",
	"Apparel":                          "Clothing",
	"Shoes":                            "Clothing",
	"Health and Beauty":                "Personal Care",
	"Beauty":                           "Personal Care",
	"Pet Products":                     "Pet Food & Supplies",
	"Personal Computers":               "Electronics & Software",
	"Wireless":                         "Electronics & Software",
	"Electronics":                      "Electronics & Software",
	"Office Product":                   "Office Supplies",
	"Home Improvement":                 "Home Improvement",
	"Kitchen":                          "Furnishings",
	"Home":                             "Furnishings",
	"Lawn & Patio":                     "Lawn & Garden",
	"Sports":                           "Sporting Goods",
	"Baby Product":                     "Baby Supplies",
	"Automotive Parts and Accessories": "Auto & Transport",
}
