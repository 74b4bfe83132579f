package snapshot

const (
	proposalsQuery = `
		query Proposals($where: ProposalWhere!, $first: Int!) {
			proposals(
				first: $first
				where: $where
				orderBy: "created"
				orderDirection: desc
			) {
				id
				title
				body
				choices
				start
				end
				snapshot
				state
				author
				created
				votes
				space {
					id
					name
				}
			}
		}
	`

	votesQuery = `
		query Votes($proposal: String!, $first: Int!) {
			votes(
				first: $first
				where: { proposal: $proposal }
				orderBy: "vp"
				orderDirection: desc
			) {
				id
				voter
				vp
				choice
				created
				reason
			}
		}
	`

	spaceQuery = `
		query Space($id: String!) {
			space(id: $id) {
				id
				name
				about
				network
				symbol
				members
				followersCount
			}
		}
	`
)
