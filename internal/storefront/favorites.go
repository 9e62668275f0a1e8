package storefront

import "slices"

// Favorites is the list of product IDs the shopper starred, kept locally.
type Favorites struct {
	store *LocalStore
}

func NewFavorites(store *LocalStore) *Favorites {
	return &Favorites{store: store}
}

func (f *Favorites) List() []string {
	var ids []string
	f.store.Get(keyFavorites, &ids)
	return ids
}

func (f *Favorites) Contains(productID string) bool {
	return slices.Contains(f.List(), productID)
}

// Toggle adds productID if absent and removes it otherwise. It reports
// whether the product is a favorite afterwards.
func (f *Favorites) Toggle(productID string) (bool, error) {
	var added bool
	err := f.store.Update(func(tx *Tx) error {
		var ids []string
		tx.Get(keyFavorites, &ids)
		if i := slices.Index(ids, productID); i >= 0 {
			ids = slices.Delete(ids, i, i+1)
		} else {
			ids = append(ids, productID)
			added = true
		}
		return tx.Set(keyFavorites, ids)
	})
	return added, err
}
