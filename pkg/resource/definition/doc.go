// Package definition loads resources declared in a YAML file and keeps a
// registry in sync with it.
//
// A definition file lists resources backed by SQL tables:
//
//	resources:
//	  - key: items
//	    title: Items
//	    table: items
//	    default_sort: id
//	    joins:
//	      - LEFT JOIN categories ON categories.id = items.category_id
//	    columns:
//	      - name: id
//	      - name: name
//	      - name: status
//	      - name: category.name
//	        expr: categories.name
//	    fields:
//	      - kind: id
//	      - kind: text
//	        label: Name
//	        sortable: true
//	      - kind: select
//	        label: Status
//	        options: {draft: Draft, live: Live}
//	      - kind: belongs_to
//	        label: Category
//	        relation: category
//	        display: name
//	        show_when: [status, "=", live]
//	    export: [id, name, category]
//	    filters:
//	      - kind: select
//	        label: Status
//	        options: {draft: Draft, live: Live}
//
// Page lists (index, detail, form, export, import) name entries of fields;
// a box is named by its label. Filters are declared in full because they
// usually differ from the listed columns.
//
// Fields hold per-record state, so a loaded resource builds fresh fields
// on every call. The declaration is validated once by Load.
package definition
