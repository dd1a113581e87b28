package sync

// Canonical id attributes are multi-provider federated: a single
// logical id field holds an ordered set of {id, provider, realm}
// triples, one per system that knows the entity.

// IDRef builds one {id, provider, realm} triple.
func IDRef(id any, provider, realm string) Record {
	return Record{
		"id":       id,
		"provider": provider,
		"realm":    realm,
	}
}

// IDRefList wraps a single triple into the list shape canonical id
// fields carry.
func IDRefList(id any, provider, realm string) []Record {
	return []Record{IDRef(id, provider, realm)}
}

// IDForRealm extracts the id half of the triple matching the given
// provider and realm from a canonical id field value. When no triple
// matches, the first triple's id is returned as a fallback; scalar
// values pass through unchanged.
func IDForRealm(v any, provider, realm string) (any, bool) {
	refs, ok := AsRecordList(v)
	if !ok {
		if v == nil {
			return nil, false
		}
		return v, true
	}
	if len(refs) == 0 {
		return nil, false
	}
	for _, ref := range refs {
		if ref.GetString("provider") == provider && ref.GetString("realm") == realm {
			return ref.Get("id"), true
		}
	}
	return refs[0].Get("id"), true
}
